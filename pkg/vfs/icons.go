package vfs

import (
	"mime"

	"github.com/gabriel-vasile/mimetype"
)

var iconsByExtension = map[string]string{
	"txt": "text", "md": "text", "log": "text", "rtf": "text",
	"json": "code", "yaml": "code", "yml": "code", "toml": "code", "xml": "code",
	"js": "code", "ts": "code", "go": "code", "py": "code", "html": "code", "css": "code", "sh": "code",
	"png": "image", "jpg": "image", "jpeg": "image", "gif": "image", "svg": "image", "webp": "image", "bmp": "image",
	"mp3": "audio", "wav": "audio", "ogg": "audio", "flac": "audio",
	"mp4": "video", "mkv": "video", "webm": "video", "mov": "video",
	"pdf": "pdf",
	"zip": "archive", "tar": "archive", "gz": "archive", "7z": "archive", "rar": "archive",
	"doc": "document", "docx": "document", "odt": "document",
	"xls": "spreadsheet", "xlsx": "spreadsheet", "csv": "spreadsheet", "ods": "spreadsheet",
	"exe": "application", "app": "application",
}

func iconFor(kind Kind, ext string) string {
	if kind == KindFolder {
		return "folder"
	}
	if icon, ok := iconsByExtension[ext]; ok {
		return icon
	}
	return "file"
}

// mimeTypeFor sniffs the payload, falling back to the extension for
// payloads that only sniff as generic text or binary.
func mimeTypeFor(ext string, payload []byte) string {
	detected := mimetype.Detect(payload)
	if !detected.Is("text/plain") && !detected.Is("application/octet-stream") {
		return detected.String()
	}
	if ext != "" {
		if byExt := mime.TypeByExtension("." + ext); byExt != "" {
			return byExt
		}
	}
	return detected.String()
}
