// Package config provides configuration loading for rfcoord.
//
// Configuration is read from a YAML file, starting from hardcoded defaults
// and finishing with RFCOORD_* environment variable overrides. The declared
// device schema lives in the file alongside operational settings, so one
// document describes both the installation and the process.
//
//	gateway:
//	  port: /dev/ttyUSB0
//	schema:
//	  declared:
//	    "01:145038":
//	      system:
//	        appliance_control: "13:120492"
//	  known_list: ["01:145038", "30:123456"]
//	  remotes:
//	    "30:123456": "32:155617"
//	database:
//	  path: ./data/rfcoord.db
//	mqtt:
//	  broker: {host: localhost, port: 1883}
//
// See Load for the precedence rules and Validate for the checks applied.
package config
