package richtext

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "paragraphs",
			doc: `{"type":"doc","content":[
				{"type":"paragraph","content":[{"type":"text","text":"First "},{"type":"text","text":"claim."}]},
				{"type":"paragraph","content":[{"type":"text","text":"Second claim."}]}]}`,
			want: "First claim.\nSecond claim.",
		},
		{
			name: "hard break and whitespace",
			doc: `{"type":"doc","content":[{"type":"paragraph","content":[
				{"type":"text","text":"  lots   of\tspace "},{"type":"hardBreak"},{"type":"text","text":"next"}]}]}`,
			want: "lots of space\nnext",
		},
		{
			name: "nested list",
			doc: `{"type":"doc","content":[{"type":"bulletList","content":[
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"one"}]}]},
				{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"two"}]}]}]}]}`,
			want: "one\ntwo",
		},
		{
			name: "no text",
			doc:  `{"type":"doc","content":[{"type":"paragraph"}]}`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(json.RawMessage(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTextErrors(t *testing.T) {
	_, err := ExtractText(nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = ExtractText(json.RawMessage("null"))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = ExtractText(json.RawMessage(`{"type":`))
	assert.Error(t, err)
}

func TestFromPlainText(t *testing.T) {
	doc := FromPlainText("Evidence first.\n\n  Then logic.  ")

	text, err := ExtractText(doc)
	require.NoError(t, err)
	assert.Equal(t, "Evidence first.\nThen logic.", text)

	var root Node
	require.NoError(t, json.Unmarshal(doc, &root))
	assert.Equal(t, "doc", root.Type)
	assert.Len(t, root.Content, 2)
}
