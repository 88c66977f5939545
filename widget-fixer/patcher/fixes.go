package patcher

// Target files, relative to the project root.
const (
	HeaderTextFile = "widget/src/SinnaPresetBase.js"
	DemoPageFile   = "widget/demo/index.html"
	DevWidgetFile  = "widget/src/SinnaPresetDev.js"
)

// Replacement is a literal find/replace pair. Every occurrence of Old is
// replaced.
type Replacement struct {
	Old string
	New string
}

// Fix is one independent change to one target file. A Fix with Replacements
// rewrites the file; a Fix with only Required strings verifies it.
type Fix struct {
	Name         string
	Path         string
	Replacements []Replacement
	Required     []string
}

// IsVerification returns true if the fix only checks the file.
func (f Fix) IsVerification() bool {
	return len(f.Replacements) == 0
}

// DefaultFixes returns the widget fixes, in the order they are applied.
func DefaultFixes() []Fix {
	return []Fix{
		{
			Name: "Header text",
			Path: HeaderTextFile,
			Replacements: []Replacement{
				{Old: "Sinna Accessibility Presets", New: "SINNA 1.0"},
				{Old: "Select a preset to analyze your video", New: "Accessibility, Automated"},
			},
		},
		{
			Name: "Demo paths",
			Path: DemoPageFile,
			Replacements: []Replacement{
				{Old: `'../dist/dev-widget.js'`, New: `'/dist/dev-widget.js'`},
				{Old: `"../dist/dev-widget.js"`, New: `"/dist/dev-widget.js"`},
			},
		},
		{
			Name:     "Dev widget controls",
			Path:     DevWidgetFile,
			Required: []string{"renderDeveloperUI", "dev-theme-toggle", "dev-accent-color"},
		},
	}
}
