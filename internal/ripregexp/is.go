package ripregexp

func IsUUID(name string) bool {
	return UUID.MatchString(name)
}

func IsAPK(name string) bool {
	return APK.MatchString(name)
}

func IsSplit(name string) bool {
	return Split.MatchString(name)
}

func IsArchive(name string) bool {
	return Archive.MatchString(name)
}
