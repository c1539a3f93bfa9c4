package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/ajholden/DatasetDB"
	"github.com/ajholden/DatasetDB/core"
	"github.com/ajholden/DatasetDB/dataeng"
	"github.com/ajholden/DatasetDB/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	port := flag.Int("port", 7654, "TCP port to listen on")
	baseDir := flag.String("baseDir", os.Getenv("DATASETDB_REPO"), "Base directory for persistence (memory if empty)")
	cacheDir := flag.String("cacheDir", "", "Cache directory for remote data pointers (default: <baseDir>/cache)")
	jwtSecret := flag.String("jwtSecret", "", "JWT shared secret (enables authentication)")
	jwtIssuer := flag.String("jwtIssuer", "", "Expected JWT issuer claim")
	s3Region := flag.String("s3Region", "", "AWS region for s3:// data pointers")
	s3Endpoint := flag.String("s3Endpoint", "", "Custom S3 endpoint for s3:// data pointers")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("DatasetDB Server v%s\n", Version)
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize persistence
	var instance *DatasetDB.Instance
	if *baseDir == "" {
		logger.Info("using memory persistence")
		persistence, err := ps.NewMemoryPersistence()
		if err != nil {
			logger.Fatal("failed to initialize memory persistence", zap.Error(err))
		}
		instance = DatasetDB.Open(&persistence)
	} else {
		logger.Info("using file persistence", zap.String("baseDir", *baseDir))
		persistence, err := ps.NewFilePersistence(*baseDir)
		if err != nil {
			logger.Fatal("failed to initialize file persistence", zap.Error(err))
		}
		instance = DatasetDB.Open(&persistence)
	}

	cache := *cacheDir
	if cache == "" {
		if *baseDir != "" {
			cache = filepath.Join(*baseDir, "cache")
		} else {
			cache = filepath.Join(os.TempDir(), "datasetdb-cache")
		}
	}

	data := dataeng.New(cache)
	if *s3Region != "" || *s3Endpoint != "" {
		data = data.WithS3(dataeng.S3Config{
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Region:    *s3Region,
			Endpoint:  *s3Endpoint,
		})
	}

	identity := core.Identity{
		Name:  "DatasetDB Server",
		Email: "server@datasetdb.local",
	}

	server := NewServer(instance, identity, data, logger)

	if *jwtSecret != "" {
		server.SetAuthConfig(&AuthConfig{
			Enabled:   true,
			JWTSecret: *jwtSecret,
			Issuer:    *jwtIssuer,
		})
		logger.Info("authentication enabled")
	}

	addr := fmt.Sprintf(":%d", *port)
	if err := server.Start(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	// Print banner
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   DatasetDB Server v%-17s ║\n", Version)
	fmt.Println("║   Git-backed Dataset Version Store    ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Listening on port %d\n", *port)
	fmt.Println("Send JSON requests (one per line), 'quit' to disconnect")
	fmt.Println()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	server.Stop()
	logger.Info("server stopped")
}
