package envelope

import "strings"

const transportExt = ".enc"

// UploadName is the stored name of a document sent to recipient.
func UploadName(original, recipient string) string {
	return original + "." + recipient + transportExt
}

// HumanFileName recovers the name the sender started from by stripping the
// transport extension and the ".<recipient>" suffix that UploadName adds.
// Names without those parts are returned as they are.
func HumanFileName(stored, recipient string) string {
	name := stored
	if strings.HasSuffix(strings.ToLower(name), transportExt) {
		name = name[:len(name)-len(transportExt)]
	}
	if recipient != "" {
		suffix := "." + recipient
		if len(name) > len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix) {
			name = name[:len(name)-len(suffix)]
		}
	}
	if name == "" {
		return "document"
	}
	return name
}
