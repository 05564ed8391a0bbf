package config

// StorageKeys are the persisted key-value entries of one device.
type StorageKeys struct {
	Session         string
	ActiveProfile   string
	Catalog         string
	LoggedUser      string
	RegisteredUsers string
}

// Keys returns the key names for the given schema version ("v5" gives
// netbons_session_v5 and so on). Bumping the version starts from a clean
// slate without touching older data.
func Keys(version string) StorageKeys {
	return StorageKeys{
		Session:         "netbons_session_" + version,
		ActiveProfile:   "netbons_activeProfile_" + version,
		Catalog:         "netbons_user_movies_" + version,
		LoggedUser:      "netbons_current_user_" + version,
		RegisteredUsers: "netbons_registered_users_" + version,
	}
}

// Keys returns the storage keys for the configured version.
func (c *Config) Keys() StorageKeys {
	return Keys(c.KeyVersion)
}
