package database

// FileContent holds the bytes of exactly one File.
type FileContent struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement"`
	FileID int64  `gorm:"column:fileId;uniqueIndex;not null"`
	Data   []byte `gorm:"column:data"`
}

func (FileContent) TableName() string {
	return "FileContent"
}
