package android

import "encoding/xml"

const (
	AndroidManifestName = "AndroidManifest.xml"
	// AndroidNamespace is the XML namespace of android:* attributes.
	AndroidNamespace = "http://schemas.android.com/apk/res/android"
)

type Manifest struct {
	XMLName        xml.Name            `xml:"manifest"`
	UsesPermission []ManifestElement   `xml:"uses-permission"`
	UsesFeature    []ManifestElement   `xml:"uses-feature"`
	Permission     []ManifestElement   `xml:"permission"`
	Application    ManifestApplication `xml:"application"`
	Attrs          []xml.Attr          `xml:",any,attr"`
}

// Attr returns the value of the manifest attribute named local in
// the namespace space, or "" if it isn't set.
func (m *Manifest) Attr(space, local string) string {
	for _, attr := range m.Attrs {
		if attr.Name.Space == space && attr.Name.Local == local {
			return attr.Value
		}
	}

	return ""
}

func (m *Manifest) Package() string {
	return m.Attr("", "package")
}

func (m *Manifest) VersionName() string {
	return m.Attr(AndroidNamespace, "versionName")
}

func (m *Manifest) VersionCode() string {
	return m.Attr(AndroidNamespace, "versionCode")
}

// ManifestElement is any element whose attributes are all that matter.
type ManifestElement struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

// Name returns the android:name attribute.
func (e ManifestElement) Name() string {
	for _, attr := range e.Attrs {
		if attr.Name.Space == AndroidNamespace && attr.Name.Local == "name" {
			return attr.Value
		}
	}

	return ""
}

type ManifestApplication struct {
	Activities      []ManifestComponent `xml:"activity"`
	ActivityAliases []ManifestComponent `xml:"activity-alias"`
	Receivers       []ManifestComponent `xml:"receiver"`
	Services        []ManifestComponent `xml:"service"`
	Providers       []ManifestComponent `xml:"provider"`
	UsesLibraries   []ManifestElement   `xml:"uses-library"`
	Attrs           []xml.Attr          `xml:",any,attr"`
}

type ManifestComponent struct {
	ManifestElement
	MetaData      []ManifestElement      `xml:"meta-data"`
	IntentFilters []ManifestIntentFilter `xml:"intent-filter"`
}

type ManifestIntentFilter struct {
	Actions    []ManifestElement `xml:"action"`
	Categories []ManifestElement `xml:"category"`
	Data       []ManifestElement `xml:"data"`
}
