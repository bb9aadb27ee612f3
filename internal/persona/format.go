package persona

import (
	"fmt"
	"strings"
)

// FormatForPlatform splits text into posts that each fit within limit.
// Text at or under the limit comes back as a single unnumbered part.
// Longer text is split at sentence boundaries where possible, then at word
// boundaries, and each part gets an "[i/n] " prefix.
func FormatForPlatform(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	// The numbering prefix eats into the budget. Repack if the part count
	// grows the prefix beyond the initial reservation. A limit too small to
	// hold a prefix plus one rune cannot be split meaningfully, so the text
	// comes back whole.
	reserve := len("[9/9] ")
	var parts []string
	for {
		budget := limit - reserve
		if budget < 1 {
			return []string{text}
		}
		parts = packParts(text, budget)
		need := len(fmt.Sprintf("[%d/%d] ", len(parts), len(parts)))
		if need <= reserve {
			break
		}
		reserve = need
	}

	total := len(parts)
	for i, part := range parts {
		parts[i] = fmt.Sprintf("[%d/%d] %s", i+1, total, part)
	}
	return parts
}

// packParts greedily fills parts with whole sentences, falling back to
// word and finally rune splits for oversized pieces.
func packParts(text string, budget int) []string {
	var parts []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, sentence := range splitSentences(text) {
		if fits(current.String(), sentence, budget) {
			appendPiece(&current, sentence)
			continue
		}
		flush()
		if len([]rune(sentence)) <= budget {
			current.WriteString(sentence)
			continue
		}
		// Sentence alone is over budget, fall back to words.
		for _, word := range strings.Fields(sentence) {
			if fits(current.String(), word, budget) {
				appendPiece(&current, word)
				continue
			}
			flush()
			if len([]rune(word)) <= budget {
				current.WriteString(word)
				continue
			}
			// A single word over budget gets hard-split.
			for _, chunk := range splitRunes(word, budget) {
				flush()
				current.WriteString(chunk)
			}
		}
	}
	flush()
	return parts
}

func fits(current, piece string, budget int) bool {
	if current == "" {
		return len([]rune(piece)) <= budget
	}
	return len([]rune(current))+1+len([]rune(piece)) <= budget
}

func appendPiece(b *strings.Builder, piece string) {
	if b.Len() > 0 {
		b.WriteString(" ")
	}
	b.WriteString(piece)
}

// splitSentences breaks text after terminal punctuation followed by a
// space. The punctuation stays with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && runes[i+1] == ' ' {
				sentences = append(sentences, strings.TrimSpace(string(runes[start:i+1])))
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		tail := strings.TrimSpace(string(runes[start:]))
		if tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}

func splitRunes(word string, budget int) []string {
	runes := []rune(word)
	var chunks []string
	for len(runes) > budget {
		chunks = append(chunks, string(runes[:budget]))
		runes = runes[budget:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
