// Package dataparam implements the Data-Param Mapper: it turns a
// mutation's `data` argument into an abstractsql.Insert/Update tree,
// consulting a Parameter description of each field's shape and
// recursively checking nested entities' creation/update-precheck access
// expressions (spec.md §4.4).
package dataparam
