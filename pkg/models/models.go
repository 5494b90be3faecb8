package models

import (
	"path"
	"strconv"

	"bup/pkg/bilibili"
)

// maxVideos is how many recent uploads a snapshot keeps.
const maxVideos = 3

// Metadata is the per-creator snapshot written next to the creator's page
// and compared on the next run. Paths are slash separated and relative to
// the doc dir so they double as site paths.
type Metadata struct {
	UID       string  `json:"uid"`
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	Avatar    string  `json:"avatar"`
	AvatarURL string  `json:"avatarURL"`
	Videos    []Video `json:"videos"`
}

// Video is one recent upload. Created is in epoch milliseconds.
type Video struct {
	BVID     string `json:"bvid"`
	Title    string `json:"title"`
	Created  int64  `json:"created"`
	Thumb    string `json:"thumb"`
	ThumbURL string `json:"thumbURL"`
}

// Latest returns the newest video, or nil when there is none.
func (m *Metadata) Latest() *Video {
	if m == nil || len(m.Videos) == 0 {
		return nil
	}
	return &m.Videos[0]
}

// MakeMetadata builds the snapshot for a creator from the platform data.
// Only the first three uploads are kept.
func MakeMetadata(profile *bilibili.Profile, uploads []bilibili.Upload, userDir string) *Metadata {
	uid := strconv.FormatInt(profile.Mid, 10)
	userPath := path.Join(userDir, uid)

	md := &Metadata{
		UID:       uid,
		Name:      profile.Name,
		Path:      userPath,
		Avatar:    path.Join(userPath, "avatar.jpg"),
		AvatarURL: profile.Face,
		Videos:    make([]Video, 0, maxVideos),
	}

	for i, u := range uploads {
		if i == maxVideos {
			break
		}
		md.Videos = append(md.Videos, Video{
			BVID:     u.BVID,
			Title:    u.Title,
			Created:  u.Created * 1000,
			Thumb:    path.Join(userPath, strconv.Itoa(i)+"-thumb.jpg"),
			ThumbURL: u.Pic,
		})
	}
	return md
}
