package jd

// Device is one remote download manager reachable through the relay.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Session holds the state of one authenticated relay session. Both
// encryption tokens are derived once per handshake and are read-only
// afterwards, so concurrent calls may share a Session safely.
type Session struct {
	// SessionToken identifies the session to the relay.
	SessionToken string
	// RegainToken is reserved for session renewal.
	RegainToken string
	// ServerToken encrypts and signs control-plane traffic.
	ServerToken []byte
	// DeviceToken encrypts and signs device traffic.
	DeviceToken []byte
}

// AddLinksQuery describes a batch of links handed to the remote link
// collector.
type AddLinksQuery struct {
	AssignJobID              bool   `json:"assignJobID"`
	AutoExtract              bool   `json:"autoExtract"`
	Autostart                bool   `json:"autostart"`
	DeepDecrypt              bool   `json:"deepDecrypt"`
	DestinationFolder        string `json:"destinationFolder,omitempty"`
	Links                    string `json:"links"`
	OverwritePackagizerRules bool   `json:"overwritePackagizerRules"`
	PackageName              string `json:"packageName,omitempty"`
	SourceURL                string `json:"sourceUrl,omitempty"`
}

// LinkCollectingJob is the remote crawl job spawned by AddLinks.
type LinkCollectingJob struct {
	ID int64 `json:"id"`
}

// CrawledLinkQuery selects which fields the device reports for links
// still sitting in the link collector.
type CrawledLinkQuery struct {
	Availability bool    `json:"availability,omitempty"`
	BytesTotal   bool    `json:"bytesTotal,omitempty"`
	Enabled      bool    `json:"enabled,omitempty"`
	Host         bool    `json:"host,omitempty"`
	JobUUIDs     []int64 `json:"jobUUIDs,omitempty"`
	MaxResults   int     `json:"maxResults,omitempty"`
	PackageUUIDs []int64 `json:"packageUUIDs,omitempty"`
	StartAt      int     `json:"startAt,omitempty"`
	Status       bool    `json:"status,omitempty"`
	URL          bool    `json:"url,omitempty"`
	Variants     bool    `json:"variants,omitempty"`
}

// CrawledLink is one downloadable link discovered by a crawl.
type CrawledLink struct {
	Availability string `json:"availability"`
	BytesTotal   int64  `json:"bytesTotal"`
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Name         string `json:"name"`
	PackageUUID  int64  `json:"packageUUID"`
	URL          string `json:"url"`
	UUID         int64  `json:"uuid"`
	Variants     bool   `json:"variants"`
}

// CrawledPackageQuery selects which fields the device reports for
// packages in the link collector.
type CrawledPackageQuery struct {
	BytesTotal   bool    `json:"bytesTotal,omitempty"`
	ChildCount   bool    `json:"childCount,omitempty"`
	Enabled      bool    `json:"enabled,omitempty"`
	Hosts        bool    `json:"hosts,omitempty"`
	MaxResults   int     `json:"maxResults,omitempty"`
	PackageUUIDs []int64 `json:"packageUUIDs,omitempty"`
	SaveTo       bool    `json:"saveTo,omitempty"`
	StartAt      int     `json:"startAt,omitempty"`
	Status       bool    `json:"status,omitempty"`
}

// CrawledPackage groups crawled links sharing a destination.
type CrawledPackage struct {
	BytesTotal int64    `json:"bytesTotal"`
	ChildCount int      `json:"childCount"`
	Enabled    bool     `json:"enabled"`
	Hosts      []string `json:"hosts"`
	Name       string   `json:"name"`
	SaveTo     string   `json:"saveTo"`
	UUID       int64    `json:"uuid"`
}

// LinkQuery selects which fields the device reports for links in the
// active download list.
type LinkQuery struct {
	BytesLoaded  bool    `json:"bytesLoaded,omitempty"`
	BytesTotal   bool    `json:"bytesTotal,omitempty"`
	Enabled      bool    `json:"enabled,omitempty"`
	ETA          bool    `json:"eta,omitempty"`
	Finished     bool    `json:"finished,omitempty"`
	Host         bool    `json:"host,omitempty"`
	MaxResults   int     `json:"maxResults,omitempty"`
	PackageUUIDs []int64 `json:"packageUUIDs,omitempty"`
	Running      bool    `json:"running,omitempty"`
	Speed        bool    `json:"speed,omitempty"`
	StartAt      int     `json:"startAt,omitempty"`
	Status       bool    `json:"status,omitempty"`
	URL          bool    `json:"url,omitempty"`
}

// DownloadLink is one link in the active download list.
type DownloadLink struct {
	BytesLoaded int64  `json:"bytesLoaded"`
	BytesTotal  int64  `json:"bytesTotal"`
	Enabled     bool   `json:"enabled"`
	ETA         int64  `json:"eta"`
	Finished    bool   `json:"finished"`
	Host        string `json:"host"`
	Name        string `json:"name"`
	PackageUUID int64  `json:"packageUUID"`
	Running     bool   `json:"running"`
	Speed       int64  `json:"speed"`
	Status      string `json:"status"`
	URL         string `json:"url"`
	UUID        int64  `json:"uuid"`
}

// PackageQuery selects which fields the device reports for packages in
// the active download list.
type PackageQuery struct {
	BytesLoaded  bool    `json:"bytesLoaded,omitempty"`
	BytesTotal   bool    `json:"bytesTotal,omitempty"`
	ChildCount   bool    `json:"childCount,omitempty"`
	Enabled      bool    `json:"enabled,omitempty"`
	ETA          bool    `json:"eta,omitempty"`
	Finished     bool    `json:"finished,omitempty"`
	Hosts        bool    `json:"hosts,omitempty"`
	MaxResults   int     `json:"maxResults,omitempty"`
	PackageUUIDs []int64 `json:"packageUUIDs,omitempty"`
	Running      bool    `json:"running,omitempty"`
	SaveTo       bool    `json:"saveTo,omitempty"`
	Speed        bool    `json:"speed,omitempty"`
	StartAt      int     `json:"startAt,omitempty"`
	Status       bool    `json:"status,omitempty"`
}

// FilePackage is one package in the active download list.
type FilePackage struct {
	BytesLoaded int64    `json:"bytesLoaded"`
	BytesTotal  int64    `json:"bytesTotal"`
	ChildCount  int      `json:"childCount"`
	Enabled     bool     `json:"enabled"`
	ETA         int64    `json:"eta"`
	Finished    bool     `json:"finished"`
	Hosts       []string `json:"hosts"`
	Name        string   `json:"name"`
	Running     bool     `json:"running"`
	SaveTo      string   `json:"saveTo"`
	Speed       int64    `json:"speed"`
	Status      string   `json:"status"`
	UUID        int64    `json:"uuid"`
}

// LinkVariant is a selectable quality or format option for a crawled
// link, e.g. "720p MP4" or "audio only M4A".
type LinkVariant struct {
	IconKey string `json:"iconKey"`
	ID      string `json:"id"`
	Name    string `json:"name"`
}

// apiError is the wire shape of an explicit relay or device rejection.
type apiError struct {
	Src  string `json:"src"`
	Type string `json:"type"`
}

// connectResponse is the body of a successful handshake.
type connectResponse struct {
	SessionToken string `json:"sessiontoken"`
	RegainToken  string `json:"regaintoken"`
}
