package database

import "time"

// DirectorySeparator separates the components of a virtual file path.
const DirectorySeparator = '/'

// File is the metadata record of a stored file. Its bytes live in FileContent.
type File struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Owner            string    `gorm:"column:owner;index;not null"`
	AccessGroup      int       `gorm:"column:accessGroup;not null"`
	CreateDateTime   time.Time `gorm:"column:createDateTime;not null"`
	ModifiedDateTime time.Time `gorm:"column:modifiedDateTime;not null"`
	FilePath         string    `gorm:"column:filePath;uniqueIndex;not null"`
	Checksum         string    `gorm:"column:checksum;not null"`
	// OriginalFileSize is the length of the content as written, whatever the stored encoding.
	OriginalFileSize int64  `gorm:"column:originalFileSize;not null"`
	OriginalFileName string `gorm:"column:originalFileName;not null"`
	AttributeJSON    string `gorm:"column:attributeJson;not null"`
	Meta             string `gorm:"column:meta;not null"`
}

func (File) TableName() string {
	return "File"
}

// NewFile returns a File at path stamped with now as both creation and modification time.
func NewFile(path string, now time.Time) *File {
	now = now.UTC()
	return &File{
		FilePath:         path,
		CreateDateTime:   now,
		ModifiedDateTime: now,
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
