package model

// Style describes one entry of the static transform catalog.
type Style struct {
	ID     string
	Label  string
	Prompt string
}

// styles is the immutable catalog. Order matters for keyboard rendering.
var styles = []Style{
	{
		ID:    "anime",
		Label: "🎌 Anime",
		Prompt: "Transform this image into anime/manga art style while maintaining the exact same composition, " +
			"poses, and layout. Apply cel-shading, vibrant colors, large expressive eyes, clean line art, and " +
			"Japanese animation aesthetics. Keep all objects and people in their original positions.",
	},
	{
		ID:    "realism",
		Label: "🎨 Realism",
		Prompt: "Enhance this image with photorealistic details while maintaining the exact same composition and " +
			"poses. Improve lighting, add realistic textures, enhance details, and make it look like professional " +
			"photography. Keep all elements in their original positions.",
	},
	{
		ID:    "art",
		Label: "🖼 Art",
		Prompt: "Transform this image into a classical painting style while maintaining the exact same composition " +
			"and poses. Apply artistic brush strokes, rich colors, oil painting textures, and fine art aesthetics. " +
			"Keep all objects and people in their original positions.",
	},
	{
		ID:    "fantasy",
		Label: "🌟 Fantasy",
		Prompt: "Transform this image into fantasy art style while maintaining the exact same composition and poses. " +
			"Add magical atmosphere, mystical lighting, ethereal glow, enchanted elements, and fantasy aesthetics. " +
			"Keep all objects and people in their original positions.",
	},
	{
		ID:    "cyberpunk",
		Label: "🤖 Cyberpunk",
		Prompt: "Transform this image into cyberpunk style while maintaining the exact same composition and poses. " +
			"Add neon lighting, futuristic technology, dark atmosphere, electric blue and pink colors, and sci-fi " +
			"elements. Keep all objects and people in their original positions.",
	},
	{
		ID:    "cartoon",
		Label: "🎭 Cartoon",
		Prompt: "Transform this image into cartoon/animated style while maintaining the exact same composition and " +
			"poses. Apply bold colors, simplified features, clean outlines, and playful cartoon aesthetics. " +
			"Keep all objects and people in their original positions.",
	},
}

const defaultStylePrompt = "Transform this image with artistic enhancement while maintaining the exact same " +
	"composition and poses."

// Styles returns the catalog in display order.
func Styles() []Style {
	out := make([]Style, len(styles))
	copy(out, styles)
	return out
}

// StyleByID looks a style up; ok is false for unknown ids.
func StyleByID(id string) (Style, bool) {
	for _, s := range styles {
		if s.ID == id {
			return s, true
		}
	}
	return Style{}, false
}

// StylePrompt returns the prompt for a style, falling back to a generic one
// so a stale callback never crashes a transform.
func StylePrompt(id string) string {
	if s, ok := StyleByID(id); ok {
		return s.Prompt
	}
	return defaultStylePrompt
}
