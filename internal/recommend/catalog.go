package recommend

import (
	"fmt"

	"github.com/kalambet/mentord/internal/profile"
)

// topicGames are hand-built games for topics that have one.
var topicGames = map[string]Item{
	"operating systems": {ID: "game_os_visualization", Title: "OS Visualization Game", Description: "Interactive visualization of operating system concepts", Difficulty: "medium", Format: "visualization"},
	"os":                {ID: "game_os_visualization", Title: "OS Visualization Game", Description: "Interactive visualization of operating system concepts", Difficulty: "medium", Format: "visualization"},
	"recursion":         {ID: "game_recursion_puzzle", Title: "Recursion Puzzle", Description: "Solve recursive problems visually", Difficulty: "hard", Format: "puzzle"},
	"algorithms":        {ID: "game_recursion_puzzle", Title: "Recursion Puzzle", Description: "Solve recursive problems visually", Difficulty: "hard", Format: "puzzle"},
	"dbms":              {ID: "game_dbms_challenge", Title: "Database Query Challenge", Description: "Practice SQL queries in a game environment", Difficulty: "medium", Format: "quiz"},
	"database":          {ID: "game_dbms_challenge", Title: "Database Query Challenge", Description: "Practice SQL queries in a game environment", Difficulty: "medium", Format: "quiz"},
	"sql":               {ID: "game_dbms_challenge", Title: "Database Query Challenge", Description: "Practice SQL queries in a game environment", Difficulty: "medium", Format: "quiz"},
}

func gameFor(t string) Item {
	key := profile.NormalizeTopic(t)
	if it, ok := topicGames[key]; ok {
		it.Kind = Game
		it.Topic = key
		return it
	}
	return Item{
		ID:          "game_" + slug(key) + "_quiz",
		Kind:        Game,
		Title:       titleCase(key) + " Quiz Challenge",
		Description: fmt.Sprintf("Race the clock on %s questions", key),
		Difficulty:  "medium",
		Topic:       key,
		Format:      "quiz",
	}
}

var styleFlashcards = map[profile.LearningStyle]Item{
	profile.Visual:      {ID: "flashcard_visual_diagrams", Kind: Flashcards, Title: "Diagram Flashcards", Description: "Learn core concepts through annotated diagrams", Difficulty: "beginner"},
	profile.Textual:     {ID: "flashcard_key_terms", Kind: Flashcards, Title: "Key Terms Flashcards", Description: "Short definitions of the terms you meet most often", Difficulty: "beginner"},
	profile.Auditory:    {ID: "flashcard_spoken", Kind: Flashcards, Title: "Spoken Definitions Deck", Description: "Cards with read-aloud explanations", Difficulty: "beginner"},
	profile.Kinesthetic: {ID: "flashcard_hands_on", Kind: Flashcards, Title: "Hands-on Practice Cards", Description: "Each card ends with a tiny exercise to try", Difficulty: "beginner"},
	profile.Interactive: {ID: "flashcard_quiz", Kind: Flashcards, Title: "Quiz-Style Flashcards", Description: "Flip, answer and get instant feedback", Difficulty: "beginner"},
}

var styleGames = map[profile.LearningStyle]Item{
	profile.Visual:      {ID: "game_memory_match", Kind: Game, Title: "CS Concept Memory Match", Description: "Match related computer science concepts", Difficulty: "easy", Format: "memory"},
	profile.Kinesthetic: {ID: "game_drag_drop_builder", Kind: Game, Title: "Drag-and-Drop Builder", Description: "Assemble working systems from parts", Difficulty: "medium", Format: "builder"},
	profile.Interactive: {ID: "game_coding_challenge", Kind: Game, Title: "Quick Coding Challenge", Description: "Test your coding skills with a quick challenge", Difficulty: "medium", Format: "challenge"},
	profile.Auditory:    {ID: "game_audio_trivia", Kind: Game, Title: "Audio Trivia Round", Description: "Answer spoken questions against the clock", Difficulty: "easy", Format: "trivia"},
}

// styleResource returns the resource format matching style, centred on
// focus when given.
func styleResource(style profile.LearningStyle, focus string) (Item, bool) {
	subject := focus
	if subject == "" {
		subject = "computer science"
	}
	name := titleCase(subject)
	var it Item
	switch style {
	case profile.Visual:
		it = Item{Title: name + " Video Series", Description: fmt.Sprintf("Visual explanation of key %s concepts", subject), Format: "video"}
	case profile.Textual:
		it = Item{Title: name + " Reading Guide", Description: fmt.Sprintf("A written walkthrough of %s", subject), Format: "article"}
	case profile.Auditory:
		it = Item{Title: name + " Podcast Episode", Description: fmt.Sprintf("Listen to %s explained in conversation", subject), Format: "audio"}
	case profile.Kinesthetic:
		it = Item{Title: name + " Lab Exercises", Description: fmt.Sprintf("Learn %s by building small projects", subject), Format: "lab"}
	case profile.Interactive:
		it = Item{Title: name + " Interactive Walkthrough", Description: fmt.Sprintf("Step through %s with live examples", subject), Format: "interactive"}
	default:
		return Item{}, false
	}
	it.ID = "resource_" + slug(subject) + "_" + it.Format
	it.Kind = Resource
	it.Topic = focus
	return it, true
}
