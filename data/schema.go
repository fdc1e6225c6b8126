package data

const authSchema = `
CREATE TABLE IF NOT EXISTS Users (
    Id INTEGER PRIMARY KEY AUTOINCREMENT,
    Email TEXT NOT NULL UNIQUE,
    PasswordHash TEXT NOT NULL,
    CreatedAt DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS RevokedTokens (
    TokenId TEXT PRIMARY KEY,
    UserId INTEGER NOT NULL,
    ExpiresAt DATETIME NOT NULL
);
`

const mainSchema = `
CREATE TABLE IF NOT EXISTS Boards (
    Id INTEGER PRIMARY KEY AUTOINCREMENT,
    Name TEXT NOT NULL,
    OwnerUserId INTEGER NOT NULL, -- Users.Id in the auth database
    CreatedAt DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS IX_Boards_Owner ON Boards (OwnerUserId);

CREATE TABLE IF NOT EXISTS Notes (
    Id INTEGER PRIMARY KEY AUTOINCREMENT,
    BoardId INTEGER NOT NULL,
    UserId INTEGER NOT NULL,
    Title TEXT NOT NULL DEFAULT '',
    Content TEXT NOT NULL DEFAULT '',
    PositionX REAL NOT NULL,
    PositionY REAL NOT NULL,
    Width REAL,
    Height REAL,
    Color TEXT NOT NULL DEFAULT '#fef3c7',
    CreatedAt DATETIME NOT NULL,
    FOREIGN KEY (BoardId) REFERENCES Boards(Id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS IX_Notes_Board ON Notes (BoardId);
CREATE INDEX IF NOT EXISTS IX_Notes_User ON Notes (UserId);

CREATE TABLE IF NOT EXISTS NoteTags (
    NoteId INTEGER NOT NULL,
    Tag TEXT NOT NULL,
    Position INTEGER NOT NULL,
    PRIMARY KEY (NoteId, Tag),
    FOREIGN KEY (NoteId) REFERENCES Notes(Id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS IX_NoteTags_Tag ON NoteTags (Tag);
`
