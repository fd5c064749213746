package domain

// Store identifies which upstream catalog an app lives in.
type Store string

const (
	StoreAndroid Store = "android"
	StoreIOS     Store = "ios"
)

// ParseStore maps the "os" query value onto a Store, defaulting to android.
func ParseStore(s string) Store {
	if Store(s) == StoreIOS {
		return StoreIOS
	}
	return StoreAndroid
}

type App struct {
	ID        string   `json:"appId"`
	Name      string   `json:"title"`
	Developer string   `json:"developer"`
	Score     *float64 `json:"score"`
	Icon      string   `json:"icon"`
	Store     Store    `json:"os"`
}
