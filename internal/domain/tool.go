package domain

// Tool describes one transform offered by the catalog and what it needs.
type Tool struct {
	ID                  string        `yaml:"id" json:"id"`
	Name                string        `yaml:"name" json:"name"`
	NameAR              string        `yaml:"name_ar" json:"nameAr"`
	Category            string        `yaml:"category" json:"category"`
	Description         string        `yaml:"description" json:"description"`
	RequiresPrompt      bool          `yaml:"requires_prompt" json:"requiresPrompt"`
	RequiresSelection   bool          `yaml:"requires_selection" json:"requiresSelection"`
	RequiresSecondImage bool          `yaml:"requires_second_image" json:"requiresSecondImage"`
	VIPOnly             bool          `yaml:"vip_only" json:"vipOnly"`
	Settings            []SettingSpec `yaml:"settings" json:"settings"`
}

// Category groups tools in the UI.
type Category struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	NameAR string `yaml:"name_ar" json:"nameAr"`
}
