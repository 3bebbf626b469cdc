package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"medlabel/internal/api"
	"medlabel/internal/config"
	"medlabel/internal/redis"
	"medlabel/internal/service/intake"
	"medlabel/internal/service/ocr"
	"medlabel/internal/service/qa"
	"medlabel/internal/service/speech"
	"medlabel/internal/storage"
	"medlabel/internal/store"
	"medlabel/internal/transient"
)

func main() {
	cfgPath := os.Getenv("MEDLABEL_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("MEDLABEL_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	contexts, err := store.OpenContext(cfg.BasicConfig.ContextPath)
	if err != nil {
		log.Fatalf("open context store: %v", err)
	}
	cards, err := store.OpenCards(cfg.BasicConfig.CardsPath)
	if err != nil {
		log.Fatalf("open cards store: %v", err)
	}

	fileBase := cfg.BasicConfig.FileBaseDir
	if fileBase == "" {
		fileBase = "./data/uploads"
	}
	tempTTL := time.Duration(cfg.BasicConfig.TempFileTTL) * time.Minute
	if tempTTL <= 0 {
		tempTTL = transient.DefaultTTL
	}
	files, err := transient.NewManager(db, fileBase, tempTTL)
	if err != nil {
		log.Fatalf("init transient files: %v", err)
	}

	cleanCtx, cleanCancel := context.WithCancel(context.Background())
	defer cleanCancel()
	cleanInterval := time.Duration(cfg.BasicConfig.TempCleanInterval) * time.Minute
	if cleanInterval <= 0 {
		cleanInterval = transient.DefaultCleanupInterval
	}
	files.StartCleaner(cleanCtx, cleanInterval)

	var engine qa.Engine
	engine, err = qa.NewModelEngine(cfg, cfg.Tools.QAProvider)
	if err != nil {
		log.Fatalf("init qa engine: %v", err)
	}
	answerTTL := time.Duration(cfg.Redis.AnswerTTL) * time.Minute
	if answerTTL > 0 {
		rdb, err := redis.NewClient(cfg)
		if err != nil {
			log.Printf("answer cache disabled: %v", err)
		} else {
			defer rdb.Close()
			engine = qa.NewCachedEngine(engine, rdb, answerTTL)
		}
	}

	service := intake.NewService(intake.Deps{
		Contexts:    contexts,
		Cards:       cards,
		Files:       files,
		Engine:      engine,
		Recognizer:  ocr.NewService(cfg.Tools.TesseractCommand),
		Transcriber: speech.NewTranscriber(cfg.Tools.WhisperCommand, ""),
		Converter:   speech.NewConverter(cfg.Tools.FFmpegCommand),
		Synthesizer: speech.NewSynthesizer(cfg.Tools.TTSLanguage),
		Amplifier:   speech.NewAmplifier(cfg.Tools.FFmpegCommand, cfg.Tools.GainDB),
	})

	if err := service.SeedContext(context.Background(), cfg.BasicConfig.SeedDir); err != nil {
		log.Fatalf("seed context: %v", err)
	}

	router := gin.Default()
	api.NewHandler(service, files).RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
