// internal/models/settings.go
package models

// AppSettings 用户偏好设置，整体作为一个存储槽持久化
type AppSettings struct {
	FontSize         int     `json:"font_size"`
	LineHeight       float64 `json:"line_height"`
	Theme            string  `json:"theme"`       // cream / white / dark / green / system
	FontFamily       string  `json:"font_family"` // serif / sans
	AutoSaveInterval int     `json:"auto_save_interval"` // 秒
	AutoFormatOnSave bool    `json:"auto_format_on_save"`

	// AI 责编配置
	LLMProvider string            `json:"llm_provider,omitempty"`
	LLMConfig   map[string]string `json:"llm_config,omitempty"`
}

// DefaultSettings 返回首次启动或配置槽损坏时使用的默认设置
func DefaultSettings() *AppSettings {
	return &AppSettings{
		FontSize:         20,
		LineHeight:       1.8,
		Theme:            "cream",
		FontFamily:       "serif",
		AutoSaveInterval: 10,
		AutoFormatOnSave: false,
	}
}
