package httputil

import (
	"net/http"
	"time"
)

type Clients struct {
	API    *http.Client // REST calls: auth, create listing
	Upload *http.Client // object storage writes, longer timeout
}

func NewClients() *Clients {
	return &Clients{
		API:    &http.Client{Timeout: 30 * time.Second},
		Upload: &http.Client{Timeout: 120 * time.Second},
	}
}
