package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		intent Intent
		topic  string
	}{
		{"mma keyword", "Does Noah do MMA?", IntentMMA, "mma"},
		{"fight word", "Tell me about his last fight", IntentMMA, "mma"},
		{"fun beats mma", "fun fact about his fighting", IntentFun, "fun_facts"},
		{"fun hobby", "What are his hobbies?", IntentFun, "fun_facts"},
		{"mma beats technical", "Did he build an app to track UFC fights?", IntentMMA, "mma"},
		{"technical retrieval", "How does the RAG pipeline work?", IntentTechnical, "retrieval"},
		{"technical architecture", "Walk me through the system design", IntentTechnical, "architecture"},
		{"technical data", "What database backs the api?", IntentTechnical, "data"},
		{"technical testing", "How is the code covered by tests?", IntentTechnical, "testing"},
		{"technical deployment", "Where do you deploy it?", IntentTechnical, "deployment"},
		{"technical code", "Show me the python implementation", IntentTechnical, "code"},
		{"technical general", "Which LLM do you use?", IntentTechnical, "general"},
		{"technical beats career", "What experience does he have with embeddings?", IntentTechnical, "retrieval"},
		{"career experience", "Tell me about his work experience", IntentCareer, "experience"},
		{"career skills", "What are his strongest skills?", IntentCareer, "skills"},
		{"career education", "Where did he go to university?", IntentCareer, "education"},
		{"career availability", "Is he available to relocate?", IntentCareer, "availability"},
		{"general", "Hello there", IntentGeneral, "general"},
		{"empty", "   ", IntentGeneral, "general"},
		{"case insensitive", "WHAT ABOUT BJJ", IntentMMA, "mma"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.query)
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.topic, got.Topic)
		})
	}
}

func TestWordBoundaries(t *testing.T) {
	tests := []struct {
		query string
		not   Intent
	}{
		{"Is he a firefighter?", IntentMMA},
		{"Which function handles storage?", IntentFun},
		{"What is the latest news?", IntentTechnical},
		{"I love fragrant flowers", IntentTechnical},
		{"Is this a rapid process?", IntentTechnical},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.NotEqual(t, tt.not, Classify(tt.query).Intent)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	q := "What did he build with vectors and fights?"
	first := Classify(q)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(q))
	}
}
