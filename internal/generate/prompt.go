package generate

import (
	"math/rand/v2"
	"strings"

	"storyboard/internal/board"
	"storyboard/internal/roster"
)

// Inputs is the project state a batch captures at launch. Later roster or
// style edits do not reach operations already started from it.
type Inputs struct {
	Roster      roster.Roster
	StylePrompt string
	VideoNote   string
	// Pick returns a value in [0,n). Nil uses math/rand/v2.
	Pick func(n int) int
}

// Adjustments refine a remake of one row's image.
type Adjustments struct {
	Options []string
	Manual  string
}

func (a Adjustments) options() []string {
	out := make([]string, 0, len(a.Options))
	for _, opt := range a.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}

// Characters returns the roster entries the row's set selects, in slot order.
// The Random sentinel adds one named character with reference images that is
// not already selected.
func (in Inputs) Characters(set roster.CharacterSet) []roster.Character {
	var out []roster.Character
	chosen := make(map[int]bool)
	for _, idx := range set {
		if !roster.ValidSlot(idx) || in.Roster[idx].Empty() {
			continue
		}
		chosen[idx] = true
		out = append(out, in.Roster[idx])
	}
	if !set.IsRandom() {
		return out
	}
	var candidates []int
	for _, idx := range in.Roster.Named() {
		if !chosen[idx] && len(in.Roster[idx].ReferenceImages) > 0 {
			candidates = append(candidates, idx)
		}
	}
	if len(candidates) == 0 {
		return out
	}
	pick := in.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return append(out, in.Roster[candidates[pick(len(candidates))]])
}

// BuildImagePrompt returns the prompt text and the reference images for a
// row's image request.
func BuildImagePrompt(row *board.Row, in Inputs, adj Adjustments) (string, []string) {
	var b strings.Builder
	section := func(label, text string) {
		if text = strings.TrimSpace(text); text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if label != "" {
			b.WriteString(label)
			b.WriteString(": ")
		}
		b.WriteString(text)
	}

	section("", in.StylePrompt)
	scene := row.Source.Primary()
	if strings.TrimSpace(scene) == "" {
		scene = row.Source.Secondary()
	}
	section("Scene", scene)
	section("Setting", row.ContextPrompt)

	var images []string
	characters := in.Characters(row.Characters)
	if len(characters) > 0 {
		lines := make([]string, 0, len(characters))
		for _, c := range characters {
			line := "- " + c.Name
			if style := strings.TrimSpace(c.StyleNote); style != "" {
				line += ": " + style
			}
			lines = append(lines, line)
			images = append(images, c.ReferenceImages...)
		}
		section("", "Characters (keep them consistent with the attached reference images):\n"+strings.Join(lines, "\n"))
	}

	if opts := adj.options(); len(opts) > 0 {
		section("Adjustments", strings.Join(opts, "; "))
	}
	section("Additional instructions", adj.Manual)
	return b.String(), images
}

const videoPromptTemplate = `Using script [B] and its illustration [A], write a video prompt for an 8-second clip generated with Google's VEO 3.1 model that illustrates this script segment [B].
The prompt must be written entirely in English, except dialogue, which may stay in the language of the script. It must follow this format:
"Create an 8-second video.
Opening camera angle: the setting in image [A].
If the motion is split into several shots:
Shot 1 (how many seconds): the camera movement technique, where the camera moves from and to, whether the shot cuts and which transition the cut uses (for example match cut or match action), how the characters act, their expressions, whether they speak and, if so, a detailed description of the voice in precise vocal terms along with the language and regional accent, and whether the background is instrumental music, ambient sound or silence.
Later shots follow the same pattern and must stay consistent with every detail of the setting in image [A].
The motion leads to the final shot: where the setting is, where the camera stands in it, the camera angle toward the characters, where each character stands, each character's detailed appearance (gender, age, top, trousers, hairstyle, a face kept identical across shots, head and body proportions, expression), which part of the body faces the camera, the distance between subject and camera, and any secondary details or characters. The motion must fit the content of this segment [B]."
General notes: do not name the characters in the prompt and focus on detailed description, knowing each video lasts about 8 seconds. Every prompt must illustrate script [B] and be at least 300 words long.
Write only the prompt. No greeting, preamble or closing remarks: start with the prompt and end with the prompt.
Write the prompt as a single paragraph without line breaks, separating ideas with periods.`

const imagePlaceholder = "(analyzed from the provided image)"

// BuildVideoPrompt fills the video prompt template with the row's primary
// text and appends the project-wide note.
func BuildVideoPrompt(row *board.Row, note string) string {
	prompt := strings.NewReplacer("[A]", imagePlaceholder, "[B]", row.Source.Primary()).Replace(videoPromptTemplate)
	if strings.TrimSpace(note) != "" {
		prompt += "\n\n" + note
	}
	return prompt
}
