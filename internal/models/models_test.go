package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestBuildset_Fields(t *testing.T) {
	typ := reflect.TypeOf(Buildset{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "ExternalIDString", "size:256")
	assertGormTag(t, typ, "SubmittedAt", "not null")
	assertGormTag(t, typ, "Complete", "default:false")
	assertGormTag(t, typ, "Complete", "index")
	assertGormTag(t, typ, "Results", "default:-1")

	assertFieldType(t, typ, "ID", "int64")
	assertFieldType(t, typ, "ExternalIDString", "*string")
	assertFieldType(t, typ, "Reason", "*string")
	assertFieldType(t, typ, "SubmittedAt", "time.Time")
	assertFieldType(t, typ, "CompleteAt", "*time.Time")
	assertFieldType(t, typ, "Results", "int")
}

func TestBuildset_Relations(t *testing.T) {
	typ := reflect.TypeOf(Buildset{})

	assertGormTag(t, typ, "SourceStamps", "foreignKey:BuildsetID")
	assertGormTag(t, typ, "Properties", "foreignKey:BuildsetID")
	assertGormTag(t, typ, "Requests", "foreignKey:BuildsetID")

	assertFieldType(t, typ, "SourceStamps", "[]models.BuildsetSourceStamp")
	assertFieldType(t, typ, "Properties", "[]models.BuildsetProperty")
	assertFieldType(t, typ, "Requests", "[]models.BuildRequest")
}

func TestBuildsetSourceStamp_Fields(t *testing.T) {
	typ := reflect.TypeOf(BuildsetSourceStamp{})

	assertGormTag(t, typ, "BuildsetID", "uniqueIndex:uk_buildset_sourcestamp")
	assertGormTag(t, typ, "SourceStampID", "uniqueIndex:uk_buildset_sourcestamp")
}

func TestBuildsetProperty_Fields(t *testing.T) {
	typ := reflect.TypeOf(BuildsetProperty{})

	assertGormTag(t, typ, "BuildsetID", "primaryKey")
	assertGormTag(t, typ, "Name", "primaryKey")
	assertGormTag(t, typ, "Name", "column:property_name")
	assertGormTag(t, typ, "Value", "type:text")
	assertGormTag(t, typ, "Value", "column:property_value")
}

func TestBuildRequest_Fields(t *testing.T) {
	typ := reflect.TypeOf(BuildRequest{})

	assertGormTag(t, typ, "BuildsetID", "not null")
	assertGormTag(t, typ, "BuildsetID", "index")
	assertGormTag(t, typ, "BuilderID", "index")
	assertGormTag(t, typ, "Results", "default:-1")
	assertGormTag(t, typ, "WaitedFor", "default:false")

	assertFieldType(t, typ, "SubmittedAt", "time.Time")
	assertFieldType(t, typ, "CompleteAt", "*time.Time")
	assertFieldType(t, typ, "WaitedFor", "bool")
}

func TestSourceStamp_Fields(t *testing.T) {
	typ := reflect.TypeOf(SourceStamp{})

	assertGormTag(t, typ, "Branch", "idx_sourcestamp_branch_repo")
	assertGormTag(t, typ, "Repository", "idx_sourcestamp_branch_repo")

	assertFieldType(t, typ, "Revision", "string")
}

func TestBuilder_Fields(t *testing.T) {
	typ := reflect.TypeOf(Builder{})

	assertGormTag(t, typ, "Name", "uniqueIndex")
	assertFieldType(t, typ, "ID", "int64")
}
