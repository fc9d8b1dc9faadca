package models

import (
	"encoding/json"
	"fmt"
)

// Block is one period's worth of a plan: an ordered set of activities.
// Blocks live inside the JSON blocks column of a template or instance,
// never as their own rows.
type Block struct {
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	CompletedMembers []string   `json:"completedMembers,omitempty"`
	Activities       []Activity `json:"activities"`
}

// TotalSteps is the step count a member must reach to finish the block.
func (b Block) TotalSteps() int {
	total := 0
	for _, a := range b.Activities {
		total += a.StepCount()
	}
	return total
}

type ActivityType string

const (
	ActivityQuestion ActivityType = "question"
	ActivityPassage  ActivityType = "passage"
	ActivityVideo    ActivityType = "video"
	ActivityAction   ActivityType = "action"
)

// Activity is a tagged union. Exactly one of the payload pointers is
// non-nil, matching Type. Adding a new kind means extending StepCount
// and both JSON methods, which is the review point for new behavior.
type Activity struct {
	Type     ActivityType
	Question *QuestionActivity
	Passage  *PassageActivity
	Video    *VideoActivity
	Action   *ActionActivity
}

type QuestionActivity struct {
	Question string `json:"question"`
	// MessageID is the chat thread backing this question. Set once when
	// the plan is applied to a group; presence is the idempotency check
	// that keeps retries from creating duplicate threads.
	MessageID string `json:"messageId,omitempty"`
}

type PassageActivity struct {
	BookName      string       `json:"bookName,omitempty"`
	ChapterNumber int          `json:"chapterNumber,omitempty"`
	VerseRange    string       `json:"verseRange,omitempty"`
	Verses        []VerseRange `json:"verses,omitempty"`
}

type VerseRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type VideoActivity struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Service     string `json:"service"`
	VideoID     string `json:"videoId,omitempty"`
	Duration    int    `json:"duration,omitempty"`
}

type ActionActivity struct {
	ActionType string `json:"actionType"` // prayer, gratitude
	Text       string `json:"text,omitempty"`
}

// StepCount is how many steps this activity contributes to its block.
// A passage counts one step per verse range; everything else is a
// single step.
func (a Activity) StepCount() int {
	switch a.Type {
	case ActivityPassage:
		if a.Passage != nil && len(a.Passage.Verses) > 0 {
			return len(a.Passage.Verses)
		}
		return 1
	case ActivityQuestion, ActivityVideo, ActivityAction:
		return 1
	}
	return 1
}

// activityEnvelope is the flat wire form: the payload fields of the
// active variant plus the type discriminator.
type activityEnvelope struct {
	Type ActivityType `json:"type"`
	*QuestionActivity
	*PassageActivity
	*VideoActivity
	*ActionActivity
}

func (a Activity) MarshalJSON() ([]byte, error) {
	env := activityEnvelope{Type: a.Type}
	switch a.Type {
	case ActivityQuestion:
		env.QuestionActivity = a.Question
	case ActivityPassage:
		env.PassageActivity = a.Passage
	case ActivityVideo:
		env.VideoActivity = a.Video
	case ActivityAction:
		env.ActionActivity = a.Action
	default:
		return nil, fmt.Errorf("unknown activity type %q", a.Type)
	}
	return json.Marshal(env)
}

func (a *Activity) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type ActivityType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	a.Type = tag.Type
	switch tag.Type {
	case ActivityQuestion:
		a.Question = &QuestionActivity{}
		return json.Unmarshal(data, a.Question)
	case ActivityPassage:
		a.Passage = &PassageActivity{}
		return json.Unmarshal(data, a.Passage)
	case ActivityVideo:
		a.Video = &VideoActivity{}
		return json.Unmarshal(data, a.Video)
	case ActivityAction:
		a.Action = &ActionActivity{}
		return json.Unmarshal(data, a.Action)
	}
	return fmt.Errorf("unknown activity type %q", tag.Type)
}
