// Package odata queries the Copernicus Data Space catalogue through its OData
// Products endpoint.
//
// Responses are mapped through named shapes tried in order: the OData
// "value" collection first, then a GeoJSON "features" collection as served
// by the OpenSearch endpoint. The shape that matched is logged.
package odata
