package ripblob

import "path"

func ReferenceKey(id string) string {
	return path.Join(id, "reference.apk")
}

func DerivedKey(id string) string {
	return path.Join(id, "derived.apk")
}

func OutputKey(id string) string {
	return path.Join(id, "app.apk")
}

func RunKey(id string) string {
	return path.Join(id, "run.json")
}

// IsRunKey reports whether key holds a Run record rather than an archive.
func IsRunKey(key string) bool {
	return path.Base(key) == path.Base(RunKey(""))
}
