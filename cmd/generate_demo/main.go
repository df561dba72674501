// Command generate_demo creates a demo database with a sample French
// wordbook, driving the real import pipeline so the FTS index and
// cards come out exactly as a production import would leave them.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/database/imports"
	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/database/words"
	"github.com/mrlokans/wordflow/internal/importer"
	"github.com/mrlokans/wordflow/internal/parser"
)

const defaultDemoDatabasePath = "./demo/demo.db"

type demoWord struct {
	Lemma     string `json:"lemma"`
	MeaningZh string `json:"meaning_zh"`
	MeaningEn string `json:"meaning_en"`
	Pos       string `json:"pos"`
	Gender    string `json:"gender,omitempty"`
	IPA       string `json:"ipa,omitempty"`
	Lesson    string `json:"lesson"`
	CEFR      string `json:"cefr"`
	Tags      string `json:"tags,omitempty"`
	Hint      string `json:"hint,omitempty"`
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	wordbookRepo := wordbooks.NewRepository(db)
	wordRepo := words.NewRepository(db)
	importRepo := imports.NewRepository(db)

	book, err := wordbookRepo.Create(wordbooks.CreateParams{
		Name:        "French Essentials (Demo)",
		Language:    "fr",
		Description: "Starter vocabulary for trying out the study queue",
		Author:      "demo",
		Version:     "1.0",
	})
	if err != nil {
		log.Fatalf("Failed to create demo wordbook: %v", err)
	}
	if _, err := wordbookRepo.Activate(book.ID); err != nil {
		log.Fatalf("Failed to activate demo wordbook: %v", err)
	}

	payload, err := json.Marshal(demoWords())
	if err != nil {
		log.Fatalf("Failed to encode demo words: %v", err)
	}

	supervisor := importer.NewSupervisor(context.Background(), wordbookRepo, wordRepo, importRepo, importer.Config{Workers: 1})
	job, err := supervisor.Start(payload, "demo.json", parser.FormatJSON, book.ID)
	if err != nil {
		log.Fatalf("Failed to start demo import: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := supervisor.Shutdown(ctx); err != nil {
		log.Fatalf("Demo import did not finish: %v", err)
	}

	job, err = supervisor.Progress(job.ID)
	if err != nil {
		log.Fatalf("Failed to read demo import: %v", err)
	}
	log.Printf("Imported %d demo words (%d skipped, %d failed)", job.Succeeded, job.Skipped, job.Failed)
	log.Println("Demo database generated successfully!")
}

func demoWords() []demoWord {
	return []demoWord{
		{Lemma: "bonjour", MeaningZh: "你好", MeaningEn: "hello", Pos: "interj", IPA: "bɔ̃ʒuʁ", Lesson: "1", CEFR: "A1", Tags: "greeting"},
		{Lemma: "merci", MeaningZh: "谢谢", MeaningEn: "thank you", Pos: "interj", IPA: "mɛʁsi", Lesson: "1", CEFR: "A1", Tags: "greeting"},
		{Lemma: "pain", MeaningZh: "面包", MeaningEn: "bread", Pos: "noun", Gender: "m", IPA: "pɛ̃", Lesson: "2", CEFR: "A1", Tags: "food"},
		{Lemma: "eau", MeaningZh: "水", MeaningEn: "water", Pos: "noun", Gender: "f", IPA: "o", Lesson: "2", CEFR: "A1", Tags: "food;drink"},
		{Lemma: "fromage", MeaningZh: "奶酪", MeaningEn: "cheese", Pos: "noun", Gender: "m", IPA: "fʁɔmaʒ", Lesson: "2", CEFR: "A1", Tags: "food"},
		{Lemma: "manger", MeaningZh: "吃", MeaningEn: "to eat", Pos: "verb", IPA: "mɑ̃ʒe", Lesson: "3", CEFR: "A1", Hint: "regular -er verb"},
		{Lemma: "boire", MeaningZh: "喝", MeaningEn: "to drink", Pos: "verb", IPA: "bwaʁ", Lesson: "3", CEFR: "A2", Hint: "irregular"},
		{Lemma: "école", MeaningZh: "学校", MeaningEn: "school", Pos: "noun", Gender: "f", IPA: "ekɔl", Lesson: "4", CEFR: "A1"},
		{Lemma: "livre", MeaningZh: "书", MeaningEn: "book", Pos: "noun", Gender: "m", IPA: "livʁ", Lesson: "4", CEFR: "A1"},
		{Lemma: "apprendre", MeaningZh: "学习", MeaningEn: "to learn", Pos: "verb", IPA: "apʁɑ̃dʁ", Lesson: "4", CEFR: "A2", Hint: "irregular"},
		{Lemma: "maison", MeaningZh: "房子", MeaningEn: "house", Pos: "noun", Gender: "f", IPA: "mɛzɔ̃", Lesson: "5", CEFR: "A1"},
		{Lemma: "voiture", MeaningZh: "汽车", MeaningEn: "car", Pos: "noun", Gender: "f", IPA: "vwatyʁ", Lesson: "5", CEFR: "A1"},
		{Lemma: "heureux", MeaningZh: "幸福的", MeaningEn: "happy", Pos: "adj", IPA: "øʁø", Lesson: "6", CEFR: "A2"},
		{Lemma: "fenêtre", MeaningZh: "窗户", MeaningEn: "window", Pos: "noun", Gender: "f", IPA: "fənɛtʁ", Lesson: "6", CEFR: "A1"},
		{Lemma: "déjà", MeaningZh: "已经", MeaningEn: "already", Pos: "adv", IPA: "deʒa", Lesson: "7", CEFR: "A2"},
		{Lemma: "être", MeaningZh: "是", MeaningEn: "to be", Pos: "verb", IPA: "ɛtʁ", Lesson: "7", CEFR: "A1", Hint: "most common verb"},
		{Lemma: "avoir", MeaningZh: "有", MeaningEn: "to have", Pos: "verb", IPA: "avwaʁ", Lesson: "7", CEFR: "A1", Hint: "auxiliary"},
		{Lemma: "travailler", MeaningZh: "工作", MeaningEn: "to work", Pos: "verb", IPA: "tʁavaje", Lesson: "8", CEFR: "A2"},
		{Lemma: "cœur", MeaningZh: "心脏", MeaningEn: "heart", Pos: "noun", Gender: "m", IPA: "kœʁ", Lesson: "8", CEFR: "A2"},
		{Lemma: "temps", MeaningZh: "时间", MeaningEn: "time", Pos: "noun", Gender: "m", IPA: "tɑ̃", Lesson: "8", CEFR: "A2"},
	}
}
