package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityStepCount(t *testing.T) {
	question := Activity{Type: ActivityQuestion, Question: &QuestionActivity{Question: "What stood out?"}}
	assert.Equal(t, 1, question.StepCount())

	passage := Activity{Type: ActivityPassage, Passage: &PassageActivity{
		BookName:      "John",
		ChapterNumber: 3,
		Verses:        []VerseRange{{From: 1, To: 8}, {From: 9, To: 15}, {From: 16, To: 21}},
	}}
	assert.Equal(t, 3, passage.StepCount())

	// A passage with no verse ranges still takes one step.
	emptyPassage := Activity{Type: ActivityPassage, Passage: &PassageActivity{BookName: "Psalms"}}
	assert.Equal(t, 1, emptyPassage.StepCount())

	video := Activity{Type: ActivityVideo, Video: &VideoActivity{Title: "Intro", Service: "youtube"}}
	assert.Equal(t, 1, video.StepCount())

	action := Activity{Type: ActivityAction, Action: &ActionActivity{ActionType: "prayer"}}
	assert.Equal(t, 1, action.StepCount())
}

func TestBlockTotalSteps(t *testing.T) {
	block := Block{
		Name: "Day 1",
		Activities: []Activity{
			{Type: ActivityQuestion, Question: &QuestionActivity{Question: "Why?"}},
			{Type: ActivityPassage, Passage: &PassageActivity{
				Verses: []VerseRange{{From: 1, To: 5}, {From: 6, To: 10}, {From: 11, To: 15}},
			}},
		},
	}
	assert.Equal(t, 4, block.TotalSteps())

	assert.Equal(t, 0, Block{Name: "empty"}.TotalSteps())
}

func TestActivityJSONRoundTrip(t *testing.T) {
	activities := []Activity{
		{Type: ActivityQuestion, Question: &QuestionActivity{Question: "What stood out?", MessageID: "thread-1"}},
		{Type: ActivityPassage, Passage: &PassageActivity{
			BookName:      "John",
			ChapterNumber: 3,
			Verses:        []VerseRange{{From: 16, To: 21}},
		}},
		{Type: ActivityVideo, Video: &VideoActivity{Title: "Intro", Service: "youtube", VideoID: "abc123"}},
		{Type: ActivityAction, Action: &ActionActivity{ActionType: "prayer", Text: "Pray for your group"}},
	}

	data, err := json.Marshal(activities)
	require.NoError(t, err)

	var decoded []Activity
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, activities, decoded)
}

func TestActivityJSONWireShape(t *testing.T) {
	a := Activity{Type: ActivityQuestion, Question: &QuestionActivity{Question: "Why?"}}
	data, err := json.Marshal(a)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	// Payload fields sit flat next to the discriminator, not nested.
	assert.Equal(t, "question", raw["type"])
	assert.Equal(t, "Why?", raw["question"])
}

func TestActivityJSONUnknownType(t *testing.T) {
	var a Activity
	err := json.Unmarshal([]byte(`{"type":"quiz"}`), &a)
	assert.Error(t, err)

	_, err = json.Marshal(Activity{Type: "quiz"})
	assert.Error(t, err)
}
