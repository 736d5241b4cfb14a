package reminder

import (
	"fmt"
	"strconv"
	"strings"
)

// listTitleLabel is the fixed word in front of the position counter.
// Changing it invalidates every already-rendered list message, since the
// title text is the only carrier of the pagination position.
const listTitleLabel = "Reminder"

const listTitleSeparator = " of "

// ErrBadListTitle is returned when a title does not carry a decodable
// position.
var ErrBadListTitle = fmt.Errorf("title does not encode a list position")

// EncodeListTitle renders a 0-based position and a total as the list title,
// e.g. EncodeListTitle(0, 3) == "Reminder 1 of 3".
func EncodeListTitle(pos0, total int) string {
	return fmt.Sprintf("%s %d%s%d", listTitleLabel, pos0+1, listTitleSeparator, total)
}

// DecodeListTitle extracts the 0-based position back out of a title produced
// by EncodeListTitle. Only the portion between the label and the separator
// is parsed; the total is not trusted, the list is re-fetched anyway.
func DecodeListTitle(title string) (int, error) {
	prefix := listTitleLabel + " "
	if !strings.HasPrefix(title, prefix) {
		return 0, ErrBadListTitle
	}

	sep := strings.Index(title, listTitleSeparator)
	if sep < len(prefix) {
		return 0, ErrBadListTitle
	}

	n, err := strconv.Atoi(title[len(prefix):sep])
	if err != nil || n < 1 {
		return 0, ErrBadListTitle
	}

	return n - 1, nil
}

// NormalizeIndex wraps an out-of-range index around the list: negative wraps
// to the last item, past-the-end wraps to the first. count must be positive.
func NormalizeIndex(index, count int) int {
	if index < 0 {
		return count - 1
	}
	if index >= count {
		return 0
	}
	return index
}
