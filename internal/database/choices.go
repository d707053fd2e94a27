package database

import "fmt"

// Feeling is the dominant emotion an analyst assigned to a story.
type Feeling string

const (
	FeelingHappy   Feeling = "happy"
	FeelingSad     Feeling = "sad"
	FeelingAngry   Feeling = "angry"
	FeelingCalm    Feeling = "calm"
	FeelingExcited Feeling = "excited"
)

// Tone is the register a story is written in.
type Tone string

const (
	ToneFormal        Tone = "formal"
	ToneInformal      Tone = "informal"
	ToneFriendly      Tone = "friendly"
	ToneAuthoritative Tone = "authoritative"
	ToneSarcastic     Tone = "sarcastic"
)

// Ironic records whether a story is aligned with the tracked narrative.
type Ironic string

const (
	IronicAligned    Ironic = "aligned"
	IronicMisaligned Ironic = "misaligned"
	IronicUnclear    Ironic = "unclear"
)

// StoryType is the medium of a story.
type StoryType string

const (
	StoryTypeImage StoryType = "image"
	StoryTypeVideo StoryType = "video"
	StoryTypeText  StoryType = "text"
)

// Choice pairs a stored code with its display label.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	FeelingChoices = []Choice{
		{string(FeelingHappy), "شاد"},
		{string(FeelingSad), "غمگین"},
		{string(FeelingAngry), "عصبانی"},
		{string(FeelingCalm), "آرام"},
		{string(FeelingExcited), "هیجان‌زده"},
	}
	ToneChoices = []Choice{
		{string(ToneFormal), "رسمی"},
		{string(ToneInformal), "غیررسمی"},
		{string(ToneFriendly), "دوستانه"},
		{string(ToneAuthoritative), "مقتدرانه"},
		{string(ToneSarcastic), "کنایی"},
	}
	IronicChoices = []Choice{
		{string(IronicAligned), "همسو"},
		{string(IronicMisaligned), "ناهمسو"},
		{string(IronicUnclear), "نامشخص"},
	}
	StoryTypeChoices = []Choice{
		{string(StoryTypeImage), "عکس"},
		{string(StoryTypeVideo), "ویدئو"},
		{string(StoryTypeText), "متن"},
	}

	GenderChoices = []Choice{
		{"male", "آقا"},
		{"female", "خانم"},
		{"other", "نامشخص"},
	}
	PoliticalOrientationChoices = []Choice{
		{"osolgara", "اصولگرا"},
		{"eslahtalab", "اصلاح طلب"},
		{"moanedam", "معاند عام"},
		{"saltanattalab", "سلطنت طلب"},
		{"monafegh", "منافق"},
		{"taghribanhamso", "تقریبا همسو"},
		{"taghribannahamso", "تقریبا ناهمسو"},
	}
	OrientationChoices = []Choice{
		{"ekhlalgar", "اخلالگر"},
		{"khakestari", "خاکستری"},
		{"hamso", "همسو (ارزشی)"},
	}
	LocationChoices = []Choice{
		{"in", "داخل"},
		{"out", "خارج"},
		{"other", "نامشخص"},
	}
)

// lookupChoice accepts either the stored code or the display label.
func lookupChoice(choices []Choice, field, s string) (Choice, error) {
	for _, c := range choices {
		if c.Value == s || c.Label == s {
			return c, nil
		}
	}
	return Choice{}, fmt.Errorf("%w: %s %q is not a valid choice", ErrInvalid, field, s)
}

func labelOf(choices []Choice, value string) string {
	for _, c := range choices {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

func ParseFeeling(s string) (Feeling, error) {
	c, err := lookupChoice(FeelingChoices, "feeling", s)
	return Feeling(c.Value), err
}

func ParseTone(s string) (Tone, error) {
	c, err := lookupChoice(ToneChoices, "tone", s)
	return Tone(c.Value), err
}

func ParseIronic(s string) (Ironic, error) {
	c, err := lookupChoice(IronicChoices, "ironic", s)
	return Ironic(c.Value), err
}

func ParseStoryType(s string) (StoryType, error) {
	c, err := lookupChoice(StoryTypeChoices, "story_type", s)
	return StoryType(c.Value), err
}

// ParseOptionalChoice validates a nullable page attribute. Empty input
// clears the field.
func ParseOptionalChoice(choices []Choice, field string, s *string) (*string, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	c, err := lookupChoice(choices, field, *s)
	if err != nil {
		return nil, err
	}
	return &c.Value, nil
}

func (f Feeling) Label() string   { return labelOf(FeelingChoices, string(f)) }
func (t Tone) Label() string      { return labelOf(ToneChoices, string(t)) }
func (i Ironic) Label() string    { return labelOf(IronicChoices, string(i)) }
func (t StoryType) Label() string { return labelOf(StoryTypeChoices, string(t)) }

// ChoiceLabel returns the display label of an optional page attribute.
func ChoiceLabel(choices []Choice, value *string) string {
	if value == nil {
		return ""
	}
	return labelOf(choices, *value)
}
