package storage

const (
	DefaultInfoFile = "info.json"

	DefaultImageExt = ".jpg"

	DefaultFilePerm = 0660
	DefaultDirPerm  = 0750

	imagePrefix     = "photo_"
	timestampLayout = "20060102_150405"
)
