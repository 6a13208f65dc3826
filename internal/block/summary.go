package block

import (
	"strings"
	"time"
)

// Info describes one upload block found in the document.
type Info struct {
	Date    time.Time // zero when Err is set
	Marker  string
	Line    int // position of the marker line
	Entries int
	Err     error
}

// Scan groups document lines into upload blocks, newest first as they appear.
// Lines before the first marker are ignored. Each non-blank line that follows
// a blank line inside a block counts as one entry, so a post body containing
// blank lines is over-counted.
func Scan(lines []string, loc *time.Location) []Info {
	var blocks []Info
	prevBlank := false

	for i, line := range lines {
		line = strings.TrimRight(line, "\n")

		date, ok, err := ParseMarker(line, loc)
		if ok {
			blocks = append(blocks, Info{
				Date:   date,
				Marker: strings.TrimSpace(line),
				Line:   i,
				Err:    err,
			})
			prevBlank = false
			continue
		}
		if len(blocks) == 0 {
			continue
		}

		if strings.TrimSpace(line) == "" {
			prevBlank = true
			continue
		}
		if prevBlank {
			blocks[len(blocks)-1].Entries++
		}
		prevBlank = false
	}
	return blocks
}
