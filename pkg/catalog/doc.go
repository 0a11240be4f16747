/*
Package catalog describes the component types a workflow may publish.

Each entry carries the componentUrl and version the client needs to load the
component, default props, and an optional OpenAPI 3 schema for the props. The
catalog is usually produced by the component story generator and loaded from a
YAML file:

	components:
	  - type: weather
	    componentUrl: https://cdn.example.com/weather.js
	    version: 1.2.0
	    defaults:
	      unit: celsius
	    schema:
	      type: object
	      required: [city]
	      properties:
	        city: {type: string}
	        temp: {type: number}

The built-in live-chat types (text, list-picker, time-picker) are always present.
*/
package catalog
