package filter

import (
	"testing"

	"github.com/ppiankov/chansync/internal/source"
)

func TestTags_Excluded(t *testing.T) {
	tags := NewTags([]string{"#События", " #ВекторыДня ", "", "#ЕстьМнение"})

	tests := []struct {
		name string
		post source.Post
		want bool
	}{
		{"tag prefix", source.Post{Text: "#События в городе"}, true},
		{"second tag", source.Post{Text: "#ВекторыДня: итоги"}, true},
		{"leading whitespace", source.Post{Text: "  #ЕстьМнение текст"}, true},
		{"tag not at start", source.Post{Text: "текст #События"}, false},
		{"case sensitive", source.Post{Text: "#события"}, false},
		{"no tag", source.Post{Text: "обычный пост"}, false},
		{"media only", source.Post{Text: "#События", MediaOnly: true}, false},
		{"empty", source.Post{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tags.Excluded(tt.post); got != tt.want {
				t.Errorf("Excluded(%q) = %v, want %v", tt.post.Text, got, tt.want)
			}
		})
	}
}

func TestTags_List(t *testing.T) {
	tags := NewTags([]string{" a ", "", "b"})
	got := tags.List()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("List() = %v, want [a b]", got)
	}
}

func TestTags_Nil(t *testing.T) {
	var tags *Tags
	if tags.Excluded(source.Post{Text: "#x"}) {
		t.Error("nil tags excluded a post")
	}
	if _, ok := tags.Match("#x"); ok {
		t.Error("nil tags matched")
	}
}

func TestTags_Match(t *testing.T) {
	tags := NewTags([]string{"#a", "#ab"})
	tag, ok := tags.Match("#abc")
	if !ok || tag != "#a" {
		t.Errorf("Match() = %q, %v, want first configured tag", tag, ok)
	}
}
