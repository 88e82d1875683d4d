// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

type fileResponse struct {
	ID       string `json:"id"`
	Object   string `json:"object"`
	Bytes    int64  `json:"bytes"`
	Filename string `json:"filename"`
	Purpose  string `json:"purpose"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}
