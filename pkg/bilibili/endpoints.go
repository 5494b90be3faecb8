package bilibili

import "fmt"

// Endpoints lists every URL the client talks to. Tests and mirrors
// override them; DefaultEndpoints points at production.
type Endpoints struct {
	Home    string
	Nav     string
	Ticket  string
	Profile string
	Uploads string
	// SpacePrefix builds Referer and Origin for creator-scoped calls.
	SpacePrefix string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Home:        "https://www.bilibili.com/",
		Nav:         "https://api.bilibili.com/x/web-interface/nav",
		Ticket:      "https://api.bilibili.com/bapis/bilibili.api.ticket.v1.Ticket/GenWebTicket",
		Profile:     "https://api.bilibili.com/x/space/wbi/acc/info",
		Uploads:     "https://api.bilibili.com/x/space/wbi/arc/search",
		SpacePrefix: "https://space.bilibili.com",
	}
}

// HomeReferer is sent with the nav request.
const HomeReferer = "https://www.bilibili.com/"

// ticketHMACKey signs the GenWebTicket request.
const ticketHMACKey = "XgwSnGZ1p"

// ticketKeyID selects the HMAC key on the server side.
const ticketKeyID = "ec02"

// uploadsPageSize caps the upload list; only the newest entry matters.
const uploadsPageSize = 3

func (e Endpoints) spaceURL(mid string) string {
	return fmt.Sprintf("%s/%s", e.SpacePrefix, mid)
}

// SpaceURL is the public page of a creator.
func SpaceURL(mid string) string {
	return DefaultEndpoints().spaceURL(mid)
}

// VideoURL is the public page of an upload.
func VideoURL(bvid string) string {
	return "https://www.bilibili.com/video/" + bvid
}
