// Command newsforge is the CLI for the news production pipeline: it runs and
// resumes productions, inspects status and cached content, and manages
// reusable assets and configuration.
package main
