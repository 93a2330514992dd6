package models

// Rating is the curation verdict assigned to an image.
type Rating string

const (
	RatingNone      Rating = "none"
	RatingGood      Rating = "good"
	RatingBad       Rating = "bad"
	RatingNeedsEdit Rating = "needs_edit"
)

// ParseRating maps a stored string to a Rating, defaulting to none.
func ParseRating(s string) Rating {
	switch Rating(s) {
	case RatingGood, RatingBad, RatingNeedsEdit:
		return Rating(s)
	default:
		return RatingNone
	}
}

// Valid reports whether r is one of the known rating values.
func (r Rating) Valid() bool {
	switch r {
	case RatingNone, RatingGood, RatingBad, RatingNeedsEdit:
		return true
	}
	return false
}

// ImageEntry represents one discovered image in a project folder.
// Width and Height stay nil when the image could not be decoded, so
// unreadable files are never displayed as 0x0.
type ImageEntry struct {
	ID           string   `json:"id"`
	Path         string   `json:"path"`
	RelativePath string   `json:"relative_path"`
	Filename     string   `json:"filename"`
	Width        *int     `json:"width"`
	Height       *int     `json:"height"`
	FileSize     int64    `json:"file_size"`
	Tags         []string `json:"tags"`
	Rating       Rating   `json:"rating"`
}

// HasCaption reports whether the entry carries any tags.
func (e *ImageEntry) HasCaption() bool {
	return len(e.Tags) > 0
}

// DuplicateGroup is a set of images sharing one content fingerprint.
// Every reported group has at least two members.
type DuplicateGroup struct {
	Fingerprint string   `json:"fingerprint"`
	Paths       []string `json:"paths"`
}

// HashError records a file the duplicate scan could not fingerprint.
type HashError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// DuplicateReport is the outcome of a duplicate scan. Files that failed
// to hash are listed in Errors rather than silently dropped.
type DuplicateReport struct {
	Groups []DuplicateGroup `json:"groups"`
	Errors []HashError      `json:"errors"`
}
