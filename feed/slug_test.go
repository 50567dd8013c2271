package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title  string
		expect string
	}{
		{"Past Lives", "past-lives"},
		{"Amélie", "amelie"},
		{"Tom & Jerry's Big Night", "tom-jerry-s-big-night"},
		{"  2001: A Space Odyssey  ", "2001-a-space-odyssey"},
		{"Crouching Tiger, Hidden Dragon!", "crouching-tiger-hidden-dragon"},
		{"!!!", "untitled"},
		{"", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expect, Slugify(tt.title))
		})
	}
}
