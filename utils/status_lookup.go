package utils

import (
	"fmt"
	"strings"

	"ip-tracking-api/models"
)

// Reviewer UIs send document decisions in whatever vocabulary their form uses;
// every synonym below resolves to one canonical status.
var (
	documentStatusSynonyms = map[models.DocumentStatus][]string{
		models.DocumentStatusPending: {
			"pending",
			"waiting",
			"อยู่ระหว่างการพิจารณา",
		},
		models.DocumentStatusApproved: {
			"approved",
			"approve",
			"accepted",
			"อนุมัติ",
		},
		models.DocumentStatusRejected: {
			"rejected",
			"reject",
			"ปฏิเสธ",
		},
		models.DocumentStatusRevisionNeeded: {
			"revision_needed",
			"revision",
			"needs_more_info",
			"ต้องการข้อมูลเพิ่มเติม",
		},
	}
	submissionStatusSynonyms = map[models.SubmissionStatus][]string{
		models.SubmissionStatusDraft:          {"draft", "ร่าง"},
		models.SubmissionStatusSubmitted:      {"submitted", "ยื่นแล้ว"},
		models.SubmissionStatusInReview:       {"in_review", "review", "อยู่ระหว่างการพิจารณา"},
		models.SubmissionStatusRevisionNeeded: {"revision_needed", "needs_more_info", "ต้องการข้อมูลเพิ่มเติม"},
		models.SubmissionStatusCompleted:      {"completed", "granted", "เสร็จสิ้น"},
		models.SubmissionStatusRejected:       {"rejected", "ปฏิเสธ"},
	}

	documentStatusAliases   = buildAliasMap(documentStatusSynonyms)
	submissionStatusAliases = buildAliasMap(submissionStatusSynonyms)
)

func buildAliasMap[S ~string](synonyms map[S][]string) map[string]S {
	aliasMap := make(map[string]S)
	for canonical, aliases := range synonyms {
		aliasMap[normalizeStatusCode(string(canonical))] = canonical
		for _, alias := range aliases {
			if normalized := normalizeStatusCode(alias); normalized != "" {
				aliasMap[normalized] = canonical
			}
		}
	}
	return aliasMap
}

func normalizeStatusCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.NewReplacer("-", "_", " ", "_").Replace(code)
}

// ParseDocumentStatus resolves raw to a document status.
func ParseDocumentStatus(raw string) (models.DocumentStatus, error) {
	if status, ok := documentStatusAliases[normalizeStatusCode(raw)]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown document status %q", raw)
}

// ParseSubmissionStatus resolves raw to a submission status.
func ParseSubmissionStatus(raw string) (models.SubmissionStatus, error) {
	if status, ok := submissionStatusAliases[normalizeStatusCode(raw)]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown submission status %q", raw)
}

// SubmissionStatusLabelTH is the Thai label shown to applicants.
func SubmissionStatusLabelTH(status models.SubmissionStatus) string {
	if synonyms, ok := submissionStatusSynonyms[status]; ok {
		return synonyms[len(synonyms)-1]
	}
	return string(status)
}
