// Package ledger tracks which real-shot image URLs have already been
// uploaded for a product. The task store persists the ledger as one
// comma-joined string; full-width commas occur in upstream data and are
// honored as delimiters too.
package ledger

import "strings"

func splitImageList(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")

	var urls []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			urls = append(urls, part)
		}
	}

	return urls
}

// Pending returns the URLs in allImages that are absent from
// uploadedImages, preserving the order of allImages.
func Pending(allImages, uploadedImages string) []string {
	all := splitImageList(allImages)
	if len(all) == 0 {
		return nil
	}

	uploaded := make(map[string]struct{})
	for _, url := range splitImageList(uploadedImages) {
		uploaded[url] = struct{}{}
	}

	var pending []string
	for _, url := range all {
		if _, ok := uploaded[url]; !ok {
			pending = append(pending, url)
		}
	}

	return pending
}

// Record appends newly uploaded URLs to the previous ledger value. The
// ledger is append-only; nothing is deduplicated or reordered.
func Record(previous string, uploaded []string) string {
	if len(uploaded) == 0 {
		return previous
	}

	joined := strings.Join(uploaded, ",")
	if previous == "" {
		return joined
	}

	return previous + "," + joined
}
