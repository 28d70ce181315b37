package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testClassifier() *Classifier {
	return New(
		[]string{"가격오류", "프라이스에러", "초특가"},
		[]string{"맥캘란", "위스키", "에어팟", "Airpods"},
		[]string{"종료", "품절"},
	)
}

func TestClassify(t *testing.T) {
	c := testClassifier()

	testCases := []struct {
		title    string
		expected []Tag
	}{
		{
			title:    "가격오류 맥캘란 30년",
			expected: []Tag{TagJackpot, TagWatchlist},
		},
		{
			title:    "일반 공구 모집",
			expected: nil,
		},
		{
			title:    "초특가 건전지 10개입",
			expected: []Tag{TagJackpot},
		},
		{
			title:    "에어팟 프로 2 189,000원",
			expected: []Tag{TagWatchlist},
		},
		{
			// Matching is case-insensitive
			title:    "AIRPODS PRO 2",
			expected: []Tag{TagWatchlist},
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, c.Classify(tc.title), "title: %s", tc.title)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := testClassifier()

	first := c.Classify("가격오류 맥캘란 30년")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify("가격오류 맥캘란 30년"))
	}
}

func TestBanned(t *testing.T) {
	c := testClassifier()

	assert.True(t, c.Banned("[종료] 에어팟 프로 2"))
	assert.True(t, c.Banned("위스키 특가 (품절)"))
	assert.False(t, c.Banned("에어팟 프로 2"))
}

func TestEmptyFamilies(t *testing.T) {
	c := New(nil, nil, nil)

	assert.Empty(t, c.Classify("가격오류 맥캘란 30년"))
	assert.False(t, c.Banned("종료된 딜"))
}
