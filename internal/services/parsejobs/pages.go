package parsejobs

// bytesPerPage is the estimation divisor for non-PDF files, roughly one
// dense text page.
const bytesPerPage = 3000

// estimatePageCount approximates a page count for formats without
// intrinsic pagination. Always at least one page.
func estimatePageCount(sizeBytes int64) int {
	if sizeBytes <= 0 {
		return 1
	}
	pages := int((sizeBytes + bytesPerPage - 1) / bytesPerPage)
	if pages < 1 {
		pages = 1
	}
	return pages
}
