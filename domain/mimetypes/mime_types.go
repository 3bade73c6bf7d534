package mimetypes

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const ApplicationPDF = "application/pdf"

// Class is the coarse attachment family shown by clients.
type Class string

const (
	Image    Class = "image"
	Video    Class = "video"
	Audio    Class = "audio"
	PDF      Class = "pdf"
	Document Class = "document"
	File     Class = "file"
)

var documentTypes = []string{
	"text/plain",
	"text/csv",
	"text/rtf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.oasis.opendocument.text",
	"application/vnd.oasis.opendocument.spreadsheet",
	"application/vnd.oasis.opendocument.presentation",
}

// Classify maps a declared MIME type to its attachment class.
// Aliases and parent types known to the detector are taken into account,
// anything unrecognised is a plain File.
func Classify(declared string) Class {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return File
	}
	if class, ok := classifyPrefix(mt); ok {
		return class
	}
	for m := mimetype.Lookup(mt); m != nil; m = m.Parent() {
		if class, ok := classifyPrefix(m.String()); ok {
			return class
		}
		if m.Is(ApplicationPDF) {
			return PDF
		}
		for _, doc := range documentTypes {
			if m.Is(doc) {
				return Document
			}
		}
	}
	return File
}

func classifyPrefix(mt string) (Class, bool) {
	switch {
	case strings.HasPrefix(mt, "image/"):
		return Image, true
	case strings.HasPrefix(mt, "video/"):
		return Video, true
	case strings.HasPrefix(mt, "audio/"):
		return Audio, true
	case mt == ApplicationPDF:
		return PDF, true
	}
	return "", false
}
