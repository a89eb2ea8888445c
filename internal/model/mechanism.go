package model

type ScrapeMechanism int

const (
	Curl ScrapeMechanism = iota
	HeadlessBrowser
	CommonCrawl
)

func (sm ScrapeMechanism) String() string {
	return [...]string{"curl", "headless browser", "common crawl"}[sm]
}
