// SPDX-License-Identifier: MIT

package crawler

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Listing is the parsed form of one club listing page.
type Listing struct {
	VODURLs    []string
	TotalPages int
}

// Detail is the parsed form of one VOD detail page. StartTime is the
// raw "2006-01-02 15:04:05" string split off the subtitle.
type Detail struct {
	CanonID   string
	Title     string
	Subtitle  string
	StartTime string
	SDStream  string
	HDStream  string
	FHDStream string
}

// parseListing extracts the VOD detail links and the total page count
// from a listing page.
func parseListing(pageURL, body string) (*Listing, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	urls := make(map[string]struct{})
	for _, list := range findAllByClass(root, "videolist") {
		for _, videos := range findAllByClass(list, "videos") {
			for _, a := range findAllByTag(videos, "a") {
				if href := attrValue(a, "href"); href != "" {
					urls[resolveHref(pageURL, href)] = struct{}{}
				}
			}
		}
	}
	listing := &Listing{TotalPages: 1}
	for u := range urls {
		listing.VODURLs = append(listing.VODURLs, u)
	}
	sort.Strings(listing.VODURLs)

	if skip := findByClass(root, "p-skip"); skip != nil {
		if m := totalPagesRe.FindStringSubmatch(nodeText(skip)); m != nil {
			listing.TotalPages, _ = strconv.Atoi(m[1])
		}
	}
	return listing, nil
}

// parseDetail extracts VOD metadata from a detail page.
func parseDetail(body string) (*Detail, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	idNode := findByID(root, "vedio_id")
	if idNode == nil {
		return nil, errors.New("no #vedio_id element")
	}
	titleNode := findByClass(root, "title1")
	if titleNode == nil {
		return nil, errors.New("no .title1 element")
	}
	subtitleNode := findByClass(root, "title2")
	if subtitleNode == nil {
		return nil, errors.New("no .title2 element")
	}
	subtitle := strings.TrimSpace(nodeText(subtitleNode))
	m := subtitleRe.FindStringSubmatch(subtitle)
	if m == nil {
		return nil, errors.New("subtitle carries no start datetime: " + subtitle)
	}

	d := &Detail{
		CanonID:   attrValue(idNode, "value"),
		Title:     strings.TrimSpace(nodeText(titleNode)),
		Subtitle:  strings.TrimSpace(m[1]),
		StartTime: m[2],
	}
	if n := findByID(root, "liuchang_url"); n != nil {
		d.SDStream = attrValue(n, "value")
	}
	if n := findByID(root, "gao_url"); n != nil {
		d.HDStream = attrValue(n, "value")
	}
	if n := findByID(root, "chao_url"); n != nil {
		d.FHDStream = attrValue(n, "value")
	}
	if d.SDStream == "" && d.HDStream == "" && d.FHDStream == "" {
		return nil, errors.New("no stream found")
	}
	return d, nil
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func walkNodes(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, visit)
	}
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walkNodes(root, func(n *html.Node) {
		if found == nil && attrValue(n, "id") == id {
			found = n
		}
	})
	return found
}

func findByClass(root *html.Node, class string) *html.Node {
	var found *html.Node
	walkNodes(root, func(n *html.Node) {
		if found == nil && hasClass(n, class) {
			found = n
		}
	})
	return found
}

func findAllByClass(root *html.Node, class string) []*html.Node {
	var out []*html.Node
	walkNodes(root, func(n *html.Node) {
		if hasClass(n, class) {
			out = append(out, n)
		}
	})
	return out
}

func findAllByTag(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	walkNodes(root, func(n *html.Node) {
		if n.Data == tag {
			out = append(out, n)
		}
	})
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return sb.String()
}
