package rip

const (
	ExtAPK = ".apk"
)

const (
	ContentTypeAPK       = "application/vnd.android.package-archive"
	ContentTypeMultiPart = "multipart/form-data"
	ContentTypeJSON      = "application/json"
	ContentTypeYAML      = "application/yaml"
)
