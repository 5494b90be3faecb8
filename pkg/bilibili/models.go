package bilibili

import "encoding/json"

// envelope is the common {code, message, data} response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Profile is the subset of acc/info the site builder uses. Raw keeps the
// full payload for debugging.
type Profile struct {
	Mid   int64  `json:"mid"`
	Name  string `json:"name"`
	Face  string `json:"face"`
	Sign  string `json:"sign"`
	Level int    `json:"level"`

	Raw json.RawMessage `json:"-"`
}

// Upload is one entry of arc/search's data.list.vlist.
type Upload struct {
	BVID  string `json:"bvid"`
	Title string `json:"title"`
	// Created is the publish time in epoch seconds.
	Created int64  `json:"created"`
	Pic     string `json:"pic"`
	Length  string `json:"length"`
}

type uploadsData struct {
	List *struct {
		VList []Upload `json:"vlist"`
	} `json:"list"`
}

type navData struct {
	WBIImg *struct {
		ImgURL string `json:"img_url"`
		SubURL string `json:"sub_url"`
	} `json:"wbi_img"`
}

type ticketData struct {
	Ticket    string `json:"ticket"`
	CreatedAt int64  `json:"created_at"`
	TTL       int64  `json:"ttl"`
}
