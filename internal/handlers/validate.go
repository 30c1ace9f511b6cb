package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"autoblogger/internal/models"
)

// Validation limits for owner edits.
const (
	maxTitleLen    = 255
	maxMetaDescLen = 160
	maxKeywords    = 10
	maxKeywordLen  = 50
	maxBodyLen     = 100_000
	maxSearchLen   = 200
	excerptLen     = 160
)

// updateRequest is the body of PUT /content/{id}. Absent fields are left
// unchanged.
type updateRequest struct {
	Title           *string   `json:"title"`
	Content         *string   `json:"content"`
	MetaDescription *string   `json:"meta_description"`
	Keywords        *[]string `json:"keywords"`
	Status          *string   `json:"status"`
}

// validateUpdate checks an edit and converts it to a patch. It returns
// field errors keyed by JSON name.
func validateUpdate(req updateRequest) (models.ContentPatch, map[string][]string) {
	var p models.ContentPatch
	errs := map[string][]string{}
	add := func(field, msg string) { errs[field] = append(errs[field], msg) }

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		switch {
		case title == "":
			add("title", "The title field is required.")
		case utf8.RuneCountInString(title) > maxTitleLen:
			add("title", fmt.Sprintf("The title may not be greater than %d characters.", maxTitleLen))
		default:
			p.Title = &title
		}
	}

	if req.Content != nil {
		switch {
		case strings.TrimSpace(*req.Content) == "":
			add("content", "The content field is required.")
		case utf8.RuneCountInString(*req.Content) > maxBodyLen:
			add("content", fmt.Sprintf("The content may not be greater than %d characters.", maxBodyLen))
		default:
			p.Body = req.Content
		}
	}

	if req.MetaDescription != nil {
		if utf8.RuneCountInString(*req.MetaDescription) > maxMetaDescLen {
			add("meta_description", fmt.Sprintf("The meta description may not be greater than %d characters.", maxMetaDescLen))
		} else {
			p.MetaDescription = req.MetaDescription
		}
	}

	if req.Keywords != nil {
		kws := *req.Keywords
		if len(kws) > maxKeywords {
			add("keywords", fmt.Sprintf("The keywords may not have more than %d items.", maxKeywords))
		}
		clean := make([]string, 0, len(kws))
		for i, kw := range kws {
			if utf8.RuneCountInString(kw) > maxKeywordLen {
				add(fmt.Sprintf("keywords.%d", i), fmt.Sprintf("The keywords.%d may not be greater than %d characters.", i, maxKeywordLen))
				continue
			}
			if kw = strings.TrimSpace(kw); kw != "" {
				clean = append(clean, kw)
			}
		}
		p.Keywords = clean
		p.KeywordsSet = true
	}

	if req.Status != nil {
		st := models.ContentStatus(*req.Status)
		if !st.Valid() {
			add("status", "The selected status is invalid.")
		} else {
			p.Status = &st
		}
	}

	if len(errs) > 0 {
		return models.ContentPatch{}, errs
	}
	return p, nil
}

// parseFilter reads listing filters from the query string.
func parseFilter(get func(string) string) (models.ContentFilter, map[string][]string) {
	var f models.ContentFilter
	errs := map[string][]string{}

	if v := get("status"); v != "" {
		st := models.ContentStatus(v)
		if !st.Valid() {
			errs["status"] = []string{"The selected status is invalid."}
		}
		f.Status = st
	}
	if v := get("content_type"); v != "" {
		ct := models.ContentType(v)
		if !ct.Valid() {
			errs["content_type"] = []string{"The selected content type is invalid."}
		}
		f.ContentType = ct
	}
	if v := strings.TrimSpace(get("search")); v != "" {
		if utf8.RuneCountInString(v) > maxSearchLen {
			errs["search"] = []string{fmt.Sprintf("The search may not be greater than %d characters.", maxSearchLen)}
		}
		f.Search = v
	}
	if v := get("page"); v != "" {
		n, err := parsePositive(v)
		if err != nil {
			errs["page"] = []string{"The page must be a positive integer."}
		}
		f.Page = n
	}
	if v := get("per_page"); v != "" {
		n, err := parsePositive(v)
		if err != nil {
			errs["per_page"] = []string{"The per page must be a positive integer."}
		}
		f.PerPage = n
	}

	if len(errs) > 0 {
		return models.ContentFilter{}, errs
	}
	return f, nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return n, nil
}
