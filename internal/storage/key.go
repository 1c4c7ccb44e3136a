package storage

import (
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var extRegex = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// ObjectKey builds "<folder>/<unixmillis>_<uuid><ext>". The extension comes
// from filename when it looks sane, otherwise from contentType. Nothing the
// client typed ends up in the key besides that extension.
func ObjectKey(folder, filename, contentType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extRegex.MatchString(ext) {
		ext = ""
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	name := fmt.Sprintf("%d_%s%s", now.UnixMilli(), uuid.NewString(), ext)
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}
