package ripregexp

import "regexp"

var (
	UUID = regexp.MustCompile("^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$")

	APK     = regexp.MustCompile(`(?i)^[\w/.-]+\.apk$`)
	Split   = regexp.MustCompile(`(?i)\.(apks|xapk|apkm)$`)
	Archive = regexp.MustCompile(`(?i)\.(apk|apks|xapk|apkm|aab|jar|zip)$`)
)
