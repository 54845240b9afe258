package tiktok

import "encoding/json"

// Wire-exact structs for the three JSON embedding conventions and the
// two listing APIs. Field names match TikTok's payloads; they change
// without notice, which is why extraction falls back across strategies.

// SSR (Server-Side Rendered) data for __UNIVERSAL_DATA_FOR_REHYDRATION__.

type universalData struct {
	DefaultScope defaultScope `json:"__DEFAULT_SCOPE__"`
}

type defaultScope struct {
	UserDetail userDetailWrapper `json:"webapp.user-detail"`
}

type userDetailWrapper struct {
	UserInfo rawUserInfo `json:"userInfo"`
}

type rawUserInfo struct {
	User  rawUserDetail `json:"user"`
	Stats rawUserStats  `json:"stats"`
}

type rawUserDetail struct {
	ID           string `json:"id"`
	UniqueID     string `json:"uniqueId"`
	Nickname     string `json:"nickname"`
	AvatarLarger string `json:"avatarLarger"`
	AvatarMedium string `json:"avatarMedium"`
	Signature    string `json:"signature"`
	Verified     bool   `json:"verified"`
	SecUID       string `json:"secUid"`
}

type rawUserStats struct {
	FollowerCount  int `json:"followerCount"`
	FollowingCount int `json:"followingCount"`
	Heart          int `json:"heart"`
	HeartCount     int `json:"heartCount"`
	VideoCount     int `json:"videoCount"`
	DiggCount      int `json:"diggCount"`
}

// Legacy SIGI_STATE global assignment.

type sigiState struct {
	UserModule sigiUserModule `json:"UserModule"`
}

// sigiUserModule keeps users raw so the first entry can be picked in
// document order rather than Go map order.
type sigiUserModule struct {
	Users json.RawMessage `json:"users"`
}

// sigiUser carries its stats nested under the user object, unlike the
// rehydration payload where user and stats are siblings.
type sigiUser struct {
	ID           string       `json:"id"`
	UniqueID     string       `json:"uniqueId"`
	Nickname     string       `json:"nickname"`
	AvatarLarger string       `json:"avatarLarger"`
	AvatarMedium string       `json:"avatarMedium"`
	Signature    string       `json:"signature"`
	SecUID       string       `json:"secUid"`
	Stats        rawUserStats `json:"stats"`
}

// Video listing API (/api/post/item_list/).

type itemListResponse struct {
	ItemList []rawItem `json:"itemList"`
	HasMore  bool      `json:"hasMore"`
	Cursor   string    `json:"cursor"`
}

type rawItem struct {
	ID    string       `json:"id"`
	IsTop int          `json:"isTop"`
	Stats rawItemStats `json:"stats"`
}

type rawItemStats struct {
	PlayCount    int `json:"playCount"`
	DiggCount    int `json:"diggCount"`
	CommentCount int `json:"commentCount"`
}

// Comment listing API (/api/comment/list/).

type commentListResponse struct {
	Comments []rawComment `json:"comments"`
	HasMore  int          `json:"has_more"`
	Cursor   int          `json:"cursor"`
}

type rawComment struct {
	Text string         `json:"text"`
	User rawCommentUser `json:"user"`
}

type rawCommentUser struct {
	UniqueID string `json:"unique_id"`
	Nickname string `json:"nickname"`
	SecUID   string `json:"sec_uid"`
}

// profileFromUserInfo maps a rehydration payload to the public Profile.
// likes prefer heartCount and fall back to the older heart field.
func profileFromUserInfo(username string, info rawUserInfo) Profile {
	avatar := info.User.AvatarLarger
	if avatar == "" {
		avatar = info.User.AvatarMedium
	}
	likes := info.Stats.HeartCount
	if likes == 0 {
		likes = info.Stats.Heart
	}
	return Profile{
		Username:    username,
		DisplayName: info.User.Nickname,
		AvatarURL:   avatar,
		Bio:         info.User.Signature,
		SecUID:      info.User.SecUID,
		Followers:   info.Stats.FollowerCount,
		Following:   info.Stats.FollowingCount,
		Likes:       likes,
		VideoCount:  info.Stats.VideoCount,
	}
}

// profileFromSigiUser maps a SIGI_STATE user entry to the public Profile.
func profileFromSigiUser(username string, u sigiUser) Profile {
	return profileFromUserInfo(username, rawUserInfo{
		User: rawUserDetail{
			ID:           u.ID,
			UniqueID:     u.UniqueID,
			Nickname:     u.Nickname,
			AvatarLarger: u.AvatarLarger,
			AvatarMedium: u.AvatarMedium,
			Signature:    u.Signature,
			SecUID:       u.SecUID,
		},
		Stats: u.Stats,
	})
}
