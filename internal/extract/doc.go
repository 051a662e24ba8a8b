// Package extract turns fetched documents into crawl input.
//
// An Extractor decodes a response body, parses it as markup and produces:
//   - link candidates from a, link, form (href) and script, img (src)
//     elements, plus literal http(s) addresses found anywhere in the text
//   - one TagRecord per element of interest
//   - a keyword delta over the document's visible text
//   - custom keyword hits, with the keyword list re-read for every document
//
// Extraction never fails as a whole. Undecodable bytes are replaced,
// malformed references are skipped one by one, and documents that cannot be
// parsed yield an empty result with the reason in Result.Errors.
package extract
