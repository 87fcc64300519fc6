package transcript

import (
	"crypto/md5"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Options bound the chunker's output. Zero values fall back to the defaults.
type Options struct {
	// MaxTokens is the per-chunk token budget.
	MaxTokens int
	// MaxSeconds is the per-chunk duration budget.
	MaxSeconds float64
	// MinSegmentWords is the threshold below which a segment is pre-merged
	// into a neighbor instead of chunked on its own.
	MinSegmentWords int
	// OverrunTolerance is how far past MaxTokens a chunk may run while
	// waiting for a sentence boundary, as a fraction of MaxTokens.
	OverrunTolerance float64
	// Provider is recorded on every produced chunk.
	Provider string
}

func DefaultOptions() Options {
	return Options{
		MaxTokens:        800,
		MaxSeconds:       90,
		MinSegmentWords:  4,
		OverrunTolerance: 0.7,
		Provider:         "whisper",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxTokens <= 0 {
		o.MaxTokens = d.MaxTokens
	}
	if o.MaxSeconds <= 0 {
		o.MaxSeconds = d.MaxSeconds
	}
	if o.MinSegmentWords <= 0 {
		o.MinSegmentWords = d.MinSegmentWords
	}
	if o.OverrunTolerance <= 0 {
		o.OverrunTolerance = d.OverrunTolerance
	}
	if o.Provider == "" {
		o.Provider = d.Provider
	}
	return o
}

// EstimateTokens approximates the token count of text as ceil(words * 1.33),
// the usual word-to-token ratio for English prose.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * 1.33))
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+["')\]]?|[^.!?]+$`)

// SplitSentences splits text on terminal punctuation, keeping the punctuation
// attached. A trailing fragment with no terminator comes back as-is.
func SplitSentences(text string) []string {
	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// ChunkSegments merges normalized transcript segments into bounded,
// sentence-respecting chunks. Two independent budgets apply, tokens and
// duration; when the next segment would exceed either, the chunker prefers to
// close at a sentence boundary and only force-splits once token usage runs
// past MaxTokens by more than OverrunTolerance. Chunk IDs are deterministic
// in (moduleID, fileID, time range) so re-chunking identical input is
// idempotent.
func ChunkSegments(moduleID, fileID string, segments []Segment, opts Options) []Chunk {
	opts = opts.withDefaults()

	work := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		if EstimateTokens(seg.Text) > opts.MaxTokens {
			work = append(work, splitLargeSegment(seg, opts.MaxTokens)...)
		} else {
			work = append(work, seg)
		}
	}
	if len(work) == 0 {
		return []Chunk{}
	}

	sort.SliceStable(work, func(i, j int) bool { return work[i].Start < work[j].Start })
	work = mergeSmallSegments(work, opts)

	var chunks []Chunk
	var buf []Segment

	flush := func() {
		if len(buf) > 0 {
			chunks = append(chunks, finalizeChunk(moduleID, fileID, buf, opts))
			buf = nil
		}
	}

	hardCap := float64(opts.MaxTokens) * (1 + opts.OverrunTolerance)

	for _, seg := range work {
		if len(buf) == 0 {
			buf = append(buf, seg)
			continue
		}

		candidateText := joinedText(buf) + " " + seg.Text
		candidateTokens := EstimateTokens(candidateText)
		candidateDuration := seg.End - buf[0].Start

		if candidateTokens <= opts.MaxTokens && candidateDuration <= opts.MaxSeconds {
			buf = append(buf, seg)
			continue
		}

		// Over budget. Split here only if it lands on a sentence boundary;
		// otherwise tolerate a bounded overrun waiting for one.
		if endsAtSentence(buf) || startsCapitalized(seg.Text) {
			flush()
			buf = append(buf, seg)
			continue
		}

		if float64(candidateTokens) > hardCap {
			flush()
			buf = append(buf, seg)
			continue
		}

		buf = append(buf, seg)
	}
	flush()

	return chunks
}

// DeriveChunkID produces the deterministic chunk identifier from the owning
// module, source file and millisecond time range.
func DeriveChunkID(moduleID, fileID string, startMs, endMs int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%d|%d", moduleID, fileID, startMs, endMs)))
	return fmt.Sprintf("ch_%x", sum[:8])
}

func finalizeChunk(moduleID, fileID string, buf []Segment, opts Options) Chunk {
	start := buf[0].Start
	end := buf[len(buf)-1].End
	text := joinedText(buf)

	loc := fmt.Sprintf("%s-%s", formatClock(start), formatClock(end))

	// Token estimate comes from the final joined text, not the sum of
	// per-segment estimates, so rounding never drifts.
	return Chunk{
		ChunkID:     DeriveChunkID(moduleID, fileID, int64(start*1000), int64(end*1000)),
		SourceFile:  fileID,
		Provider:    opts.Provider,
		SlideOrPage: &loc,
		StartSec:    &start,
		EndSec:      &end,
		Text:        text,
		TokensEst:   EstimateTokens(text),
	}
}

// splitLargeSegment breaks one oversized segment at sentence boundaries into
// parts that each fit the token budget, distributing the original time span
// proportionally to text length.
func splitLargeSegment(seg Segment, maxTokens int) []Segment {
	sentences := SplitSentences(seg.Text)
	if len(sentences) <= 1 {
		return []Segment{seg}
	}

	var groups []string
	var current strings.Builder
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		candidate := s
		if current.Len() > 0 {
			candidate = current.String() + " " + s
		}
		if current.Len() > 0 && EstimateTokens(candidate) > maxTokens {
			groups = append(groups, current.String())
			current.Reset()
			current.WriteString(s)
			continue
		}
		current.Reset()
		current.WriteString(candidate)
	}
	if current.Len() > 0 {
		groups = append(groups, current.String())
	}
	if len(groups) <= 1 {
		return []Segment{seg}
	}

	totalChars := 0
	for _, g := range groups {
		totalChars += len(g)
	}

	span := seg.End - seg.Start
	parts := make([]Segment, 0, len(groups))
	cursor := seg.Start
	for i, g := range groups {
		end := cursor + span*float64(len(g))/float64(totalChars)
		if i == len(groups)-1 {
			end = seg.End
		}
		parts = append(parts, Segment{Start: cursor, End: end, Text: g, Confidence: seg.Confidence})
		cursor = end
	}
	return parts
}

// mergeSmallSegments folds segments below the word threshold into their
// predecessor. A tiny leading segment has no predecessor and folds forward
// instead. Merging stops growing a segment once the chunk budgets are
// reached; a long run of tiny utterances becomes several bounded segments,
// not one unboundedly large one.
func mergeSmallSegments(segments []Segment, opts Options) []Segment {
	if len(segments) == 0 {
		return segments
	}

	merged := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if len(merged) == 0 {
			merged = append(merged, seg)
			continue
		}
		if len(strings.Fields(seg.Text)) < opts.MinSegmentWords {
			last := &merged[len(merged)-1]
			candidate := last.Text + " " + seg.Text
			if EstimateTokens(candidate) <= opts.MaxTokens && seg.End-last.Start <= opts.MaxSeconds {
				last.Text = candidate
				last.End = seg.End
				continue
			}
			merged = append(merged, seg)
			continue
		}
		// A tiny head segment absorbs into the first full one.
		if len(merged) == 1 && len(strings.Fields(merged[0].Text)) < opts.MinSegmentWords {
			if EstimateTokens(merged[0].Text+" "+seg.Text) <= opts.MaxTokens && seg.End-merged[0].Start <= opts.MaxSeconds {
				seg.Text = merged[0].Text + " " + seg.Text
				seg.Start = merged[0].Start
				merged[0] = seg
				continue
			}
		}
		merged = append(merged, seg)
	}
	return merged
}

func joinedText(buf []Segment) string {
	parts := make([]string, 0, len(buf))
	for _, s := range buf {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

func endsAtSentence(buf []Segment) bool {
	text := strings.TrimSpace(buf[len(buf)-1].Text)
	if text == "" {
		return false
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func startsCapitalized(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	c := text[0]
	return c >= 'A' && c <= 'Z'
}

func formatClock(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
