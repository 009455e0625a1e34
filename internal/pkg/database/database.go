package database

import (
	"github.com/glebarez/sqlite"
	"github.com/sakuralearn/backend/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func InitDB(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		// 使用 github.com/glebarez/sqlite 驱动
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := seedReferenceData(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 建表。测试里也会直接调用。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Course{}, &model.Section{}, &model.Chapter{},
		&model.Quiz{}, &model.Question{}, &model.Choice{},
		&model.Level{}, &model.Category{},
	)
}

// seedReferenceData 初始化难度等级与课程分类参照数据，已存在则跳过
func seedReferenceData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Level{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		levels := []model.Level{
			{Code: "N5", Name: "入门", SortOrder: 1},
			{Code: "N4", Name: "初级", SortOrder: 2},
			{Code: "N3", Name: "中级", SortOrder: 3},
			{Code: "N2", Name: "中高级", SortOrder: 4},
			{Code: "N1", Name: "高级", SortOrder: 5},
		}
		if err := db.Create(&levels).Error; err != nil {
			return err
		}
	}

	if err := db.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		categories := []model.Category{
			{Name: "语法"}, {Name: "词汇"}, {Name: "听力"}, {Name: "会话"}, {Name: "备考"},
		}
		if err := db.Create(&categories).Error; err != nil {
			return err
		}
	}
	return nil
}
