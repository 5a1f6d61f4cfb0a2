package indices

import (
	"encoding/json"

	"gigmarket/activity"
	"gigmarket/domain"
	"gigmarket/es"
	"gigmarket/persistence"

	"github.com/sirupsen/logrus"
)

var ProjectIndexName = "projects"

type ProjectDocument struct {
	domain.Project
}

// ProjectIndexer keeps the search index in step with the entity store by
// consuming the activity stream. Indexing is best-effort like every other
// activity handler.
type ProjectIndexer struct {
	dataSource *persistence.DataSourceManager
}

func NewProjectIndexer(ds *persistence.DataSourceManager) *ProjectIndexer {
	return &ProjectIndexer{dataSource: ds}
}

// OnActivity is registered into activity.Handlers.
func (i *ProjectIndexer) OnActivity(record *activity.Record) *activity.HandleResult {
	switch record.Type {
	case activity.TypeProjectCreated, activity.TypeProjectUpdated,
		activity.TypeProjectStatusChanged, activity.TypeFreelancerAssigned:
		if err := i.indexProject(record); err != nil {
			logrus.Warnf("index project %s %s\n", record.ProjectID, err)
			return &activity.HandleResult{Success: false, Message: err.Error(), HandlerIdentifier: "indices.project"}
		}
		return &activity.HandleResult{Success: true, HandlerIdentifier: "indices.project"}
	case activity.TypeProjectDeleted:
		if err := es.DeleteFunc(ProjectIndexName, record.ProjectID); err != nil {
			logrus.Warnf("remove project %s from index %s\n", record.ProjectID, err)
			return &activity.HandleResult{Success: false, Message: err.Error(), HandlerIdentifier: "indices.project"}
		}
		return &activity.HandleResult{Success: true, HandlerIdentifier: "indices.project"}
	}
	return nil
}

func (i *ProjectIndexer) indexProject(record *activity.Record) error {
	project := domain.Project{}
	if err := i.dataSource.GormDB().Where(&domain.Project{ID: record.ProjectID}).
		First(&project).Error; err != nil {
		return err
	}
	return es.IndexFunc(ProjectIndexName, project.ID, ProjectDocument{Project: project})
}

func SearchProjects(q string) ([]ProjectDocument, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"title", "description"},
			},
		},
	}

	sources, err := es.SearchFunc(ProjectIndexName, query)
	if err != nil {
		return nil, err
	}

	docs := make([]ProjectDocument, 0, len(sources))
	for _, source := range sources {
		doc := ProjectDocument{}
		if err := json.Unmarshal(source, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
