package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Mention
	}{
		{name: "empty", text: "", want: nil},
		{name: "no mentions", text: "just a comment", want: nil},
		{
			name: "marker",
			text: "hi [@Alice:alice01] and [@Bob:bob_7]!",
			want: []Mention{{Nickname: "Alice", UserID: "alice01"}, {Nickname: "Bob", UserID: "bob_7"}},
		},
		{
			name: "anchor with class first",
			text: `see <a href="#" class="mention-link" data-user-id="u42">@Carol</a>`,
			want: []Mention{{Nickname: "Carol", UserID: "u42"}},
		},
		{
			name: "anchor with data attribute first",
			text: `<a data-user-id="u42" class="mention-link" contenteditable="false">@Carol</a>`,
			want: []Mention{{Nickname: "Carol", UserID: "u42"}},
		},
		{
			name: "plain link ignored",
			text: `<a href="/u/1" data-user-id="u1">@NotAMention</a>`,
			want: nil,
		},
		{
			name: "duplicates across forms collapse",
			text: `[@Dan:dan] <a class="mention" data-user-id="dan">@Dan</a> [@Dan:dan]`,
			want: []Mention{{Nickname: "Dan", UserID: "dan"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestHasAndUserIDs(t *testing.T) {
	assert.False(t, Has("hello @world"))
	assert.True(t, Has("[@A:a]"))
	assert.Equal(t, []string{"a", "b"}, UserIDs("[@A:a] [@B:b] [@A:a]"))
	assert.Empty(t, UserIDs(""))
}
