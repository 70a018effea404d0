package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/HerrChaos/obsidian-waka-box/internal/model"
)

// Language is the fence tag identifying summary blocks.
const Language = "wakatime"

const (
	openFence  = "```" + Language
	closeFence = "```"
)

// ErrNoBlock is returned by ParseBlock when a note has no complete block.
var ErrNoBlock = errors.New("no wakatime block found")

// Block renders the fenced block for s: the fence line, the summary as
// JSON indented by two spaces, and the closing fence. There is no trailing
// newline.
func Block(s *model.Summary) (string, error) {
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary block: %w", err)
	}
	return openFence + "\n" + string(body) + "\n" + closeFence, nil
}

// region is a byte range [start, end) covering a block from the first
// character of its opening fence to the last character of its closing
// fence. body is the range between the fence lines. closed is false for an
// opening fence that is never closed; such a region runs to the end of the
// note.
type region struct {
	start, end         int
	bodyStart, bodyEnd int
	closed             bool
}

// findRegions scans note line by line for wakatime blocks.
func findRegions(note string) []region {
	var regions []region
	var cur *region
	offset := 0
	for _, line := range strings.SplitAfter(note, "\n") {
		content := strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(content)
		switch {
		case cur == nil && trimmed == openFence:
			cur = &region{start: offset + strings.Index(content, openFence), bodyStart: offset + len(line)}
		case cur != nil && trimmed == closeFence:
			cur.bodyEnd = offset
			cur.end = offset + len(content)
			cur.closed = true
			regions = append(regions, *cur)
			cur = nil
		}
		offset += len(line)
	}
	if cur != nil {
		cur.bodyEnd = len(note)
		cur.end = len(note)
		regions = append(regions, *cur)
	}
	return regions
}

// Upsert places block into note. The first wakatime block is replaced; any
// further blocks are removed so the note ends up with exactly one. An
// opening fence without a closing fence is treated as a block reaching the
// end of the note. A note without a block gets it appended on its own line.
func Upsert(note, block string) string {
	regions := findRegions(note)
	if len(regions) == 0 {
		if note == "" || strings.HasSuffix(note, "\n") {
			return note + block
		}
		return note + "\n" + block
	}

	var b strings.Builder
	b.Grow(len(note) + len(block))
	b.WriteString(note[:regions[0].start])
	b.WriteString(block)
	prev := regions[0].end
	for _, r := range regions[1:] {
		b.WriteString(note[prev:r.start])
		prev = r.end
		// drop the line break that followed the removed block
		if prev < len(note) && note[prev] == '\r' {
			prev++
		}
		if prev < len(note) && note[prev] == '\n' {
			prev++
		}
	}
	b.WriteString(note[prev:])
	return b.String()
}

// ParseBlock decodes the first complete wakatime block of note.
func ParseBlock(note string) (*model.Summary, error) {
	for _, r := range findRegions(note) {
		if !r.closed {
			continue
		}
		var s model.Summary
		if err := json.Unmarshal([]byte(note[r.bodyStart:r.bodyEnd]), &s); err != nil {
			return nil, fmt.Errorf("decoding wakatime block: %w", err)
		}
		return &s, nil
	}
	return nil, ErrNoBlock
}
