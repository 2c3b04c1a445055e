package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("Hello, world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths = %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsTokenID {
		t.Errorf("expected CLS, got %d", ids[0])
	}
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP after two words, got %d", ids[3])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask = %v", attn)
	}
	again, _, _ := tok.Tokenize("hello world", 10)
	if again[1] != ids[1] || again[2] != ids[2] {
		t.Error("tokenization should ignore case and punctuation")
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, _, _ := tok.Tokenize("a b c d e f g h", 4)
	if len(ids) != 4 || ids[3] != sepTokenID {
		t.Errorf("ids = %v", ids)
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  4.2 Exclusions:  pre-existing ")
	if len(words) != 5 {
		t.Errorf("expected 5 words, got %v", words)
	}
	if SplitWords("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}
