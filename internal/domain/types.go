package domain

// Framework is a sustainability disclosure standard. Frameworks are immutable
// reference data owned by a corpus.
type Framework struct {
	Code          string
	Name          string
	Color         string
	Jurisdictions []string
	Topics        []Topic
}

// Topic is a thematic subdivision of exactly one framework.
type Topic struct {
	ID           string
	Name         string
	Requirements []string
}

// Document is the extracted text of one submitted file, one entry per page.
type Document struct {
	ID    string
	Path  string
	Pages []string
}

// Segment is a unit of document text scored against requirements.
type Segment struct {
	Index int
	Page  int
	Text  string
}

// Match identifies the requirement/segment pair behind a topic score.
type Match struct {
	RequirementText string `json:"requirement_text"`
	SegmentIndex    int    `json:"segment_index"`
	SegmentPage     int    `json:"segment_page"`
	SegmentExcerpt  string `json:"segment_excerpt"`
}

// TopicScore is the aggregated score of one (framework, topic) pair.
type TopicScore struct {
	TopicID     string  `json:"topic_id"`
	TopicName   string  `json:"topic_name"`
	Score       float64 `json:"score"`
	Band        Band    `json:"band"`
	Explanation string  `json:"explanation"`
	BestMatch   Match   `json:"best_match"`
}

// FrameworkScore holds the topic scores of one framework in canonical topic
// order and their unweighted mean.
type FrameworkScore struct {
	Code         string       `json:"code"`
	DisplayName  string       `json:"display_name"`
	OverallScore float64      `json:"overall_score"`
	Topics       []TopicScore `json:"topics"`
}

// Report is the result of one alignment run. Frameworks are ordered by
// descending overall score, ties by corpus order.
type Report struct {
	Frameworks []FrameworkScore `json:"frameworks"`
}

// Framework returns the score for code, if present.
func (r *Report) Framework(code string) (FrameworkScore, bool) {
	for _, f := range r.Frameworks {
		if f.Code == code {
			return f, true
		}
	}
	return FrameworkScore{}, false
}

// Matrix is a symmetric framework-to-framework similarity table.
type Matrix struct {
	Codes  []string    `json:"framework_codes"`
	Values [][]float64 `json:"matrix"`
}

// Neighbour is another framework's similarity to a reference framework.
type Neighbour struct {
	Code       string  `json:"framework"`
	Similarity float64 `json:"similarity"`
}
