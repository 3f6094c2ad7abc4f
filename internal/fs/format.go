package fs

import (
	"time"

	"github.com/dustin/go-humanize"
)

var iconsByExt = map[string]string{
	"jpg": "file-image", "jpeg": "file-image", "png": "file-image",
	"gif": "file-image", "webp": "file-image", "svg": "file-image",

	"pdf": "file-text", "doc": "file-text", "docx": "file-text",
	"txt": "file-text", "md": "file-text",

	"mp4": "file-video", "webm": "file-video", "mov": "file-video", "avi": "file-video",

	"mp3": "file-audio", "wav": "file-audio", "ogg": "file-audio",

	"zip": "file-archive", "rar": "file-archive", "7z": "file-archive",
	"tar": "file-archive", "gz": "file-archive",
}

// FormatSize renders a file size for display. Folders have no size.
func FormatSize(e Entry) string {
	if e.IsDir() {
		return "-"
	}
	if e.Size < 0 {
		return humanize.IBytes(0)
	}
	return humanize.IBytes(uint64(e.Size))
}

// FormatModified renders the modification time in local time.
func FormatModified(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// IconFor names the icon a presentation layer should draw for e.
func IconFor(e Entry) string {
	if e.IsDir() {
		return "folder"
	}
	ext := e.Extension
	if ext == "" {
		ext = ExtensionOf(e.Name)
	}
	if icon, ok := iconsByExt[ext]; ok {
		return icon
	}
	return "file"
}
