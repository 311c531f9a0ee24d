package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentTracksHeadingPath(t *testing.T) {
	text := "# Title\n\nIntro paragraph.\n\n## Abstract\n\nThis work shows X causes Y.\n\n## Methods\n\nWe did Z.\n"

	fragments := Segment(text)
	assert.Len(t, fragments, 3)

	assert.Equal(t, "Intro paragraph.", fragments[0].Text)
	assert.Equal(t, []string{"Title"}, fragments[0].HeadingPath)
	assert.False(t, fragments[0].IsAbstract)

	assert.Equal(t, "This work shows X causes Y.", fragments[1].Text)
	assert.Equal(t, []string{"Title", "Abstract"}, fragments[1].HeadingPath)
	assert.True(t, fragments[1].IsAbstract)

	assert.Equal(t, "We did Z.", fragments[2].Text)
	assert.Equal(t, []string{"Title", "Methods"}, fragments[2].HeadingPath)
	assert.False(t, fragments[2].IsAbstract)
}

func TestSegmentAssignsStablePositionIndex(t *testing.T) {
	text := "Para one.\n\nPara two.\n\nPara three.\n"
	fragments := Segment(text)
	assert.Len(t, fragments, 3)
	for i, f := range fragments {
		assert.Equal(t, i, f.PositionIndex)
	}
}

func TestSegmentSkipsBlankParagraphs(t *testing.T) {
	text := "# Heading\n\n\n\nOnly paragraph.\n\n\n"
	fragments := Segment(text)
	assert.Len(t, fragments, 1)
	assert.Equal(t, "Only paragraph.", fragments[0].Text)
}
