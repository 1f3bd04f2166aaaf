package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/fsutil"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/storage/minioctrl"
)

func openDatabase() (*gorm.DB, error) {
	host := viper.GetString("postgres.host")
	user := viper.GetString("postgres.user")
	password := viper.GetString("postgres.password")
	dbname := viper.GetString("postgres.db")
	port := viper.GetString("postgres.port")

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	return db, nil
}

func storeReports() bool {
	return strings.EqualFold(viper.GetString("report.store"), "postgres")
}

func newMinioService() (*minioctrl.MinioService, error) {
	return minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
}

// newSourceRouter opens local paths directly and s3:// or minio:// locations
// through MinIO.
func newSourceRouter(minioService *minioctrl.MinioService) *fsutil.Router {
	router := fsutil.NewRouter(fsutil.NewLocalSource())
	if minioService != nil {
		router.Register("s3", minioService)
		router.Register("minio", minioService)
	}
	return router
}
