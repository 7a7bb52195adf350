package data

import (
	"sync"

	"gorm.io/gorm"

	"github.com/gigboard/gigboard/src/api/types"
)

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// LoadSettings loads all settings from database into cache
func LoadSettings(db *gorm.DB) error {
	var settings []types.Setting
	if err := db.Find(&settings).Error; err != nil {
		return err
	}

	cache := make(map[string]string, len(settings))
	for _, s := range settings {
		cache[s.Name] = s.Value
	}

	settingsMu.Lock()
	settingsCache = cache
	settingsMu.Unlock()
	return nil
}

// GetSetting retrieves a setting value by name
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}
