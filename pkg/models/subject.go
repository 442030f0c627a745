package models

// Subject groups the topics studied for one course or area
type Subject struct {
	ID     int64   `json:"id" db:"id"`
	Name   string  `json:"name" db:"name"`
	Topics []Topic `json:"topics" db:"-"`
}

// TopicIndex returns the position of the topic with the given ID, or -1
func (s *Subject) TopicIndex(topicID int64) int {
	for i := range s.Topics {
		if s.Topics[i].ID == topicID {
			return i
		}
	}
	return -1
}

// CompletedCount returns the number of topics marked complete
func (s *Subject) CompletedCount() int {
	n := 0
	for _, t := range s.Topics {
		if t.IsComplete {
			n++
		}
	}
	return n
}
